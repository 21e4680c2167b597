package constants

// SheetName is the worksheet that holds the extracted rows.
const SheetName = "POS Data"

// ReportHeader is the fixed header row of every output table.
var ReportHeader = []string{
	"File Name",
	"Business Name",
	"Address",
	"Serial Number",
	"Device Model",
	"Group Code",
	"Notes",
	"Merchant ID",
	"Terminal ID",
	"Terminal ID Variant",
}
