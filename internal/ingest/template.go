package ingest

import "strings"

// TemplateFilename is the suggested download name of the template
const TemplateFilename = "inventory_template.csv"

// Header is the column header shared by uploads and the template
const Header = "PartNumber,PartName,Origin,Price,Quantity,CustomerRef,Description"

var templateRows = []string{
	"58101-2S000,فحمات فرامل أمامية,كوري,120,50,CUST-001,هيونداي توسان 2015",
	"CN-FILTER-99,فلتر زيت,صيني,25,200,CUST-002,شانجان ايدو",
	"GM-123456,بواجي,أمريكي,80,100,CUST-003,شيفروليه تاهو",
}

// Template returns a sample upload file
func Template() string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, row := range templateRows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}
