package ubl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
)

// currencyCode is stamped on every amount. The data model carries no
// currency, so all documents are issued in euro.
const currencyCode = "EUR"

var ublTmpl = template.Must(template.New("ubl-invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"esc": func(s string) string {
		var b strings.Builder
		xml.EscapeText(&b, []byte(s)) // never fails on strings.Builder
		return b.String()
	},
}).Parse(ublDocument))

type ublContext struct {
	Invoice  *models.Invoice
	Company  *models.Company
	Currency string
}

// Generate renders an invoice as a UBL 2.1 document. company supplies
// the AccountingSupplierParty block and may be nil, in which case the
// output will not pass Validate. Tax is reported as zero because the
// model stores tax-inclusive amounts without a rate breakdown.
func Generate(inv *models.Invoice, company *models.Company) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("generate ubl: nil invoice")
	}
	var buf bytes.Buffer
	ctx := ublContext{Invoice: inv, Company: company, Currency: currencyCode}
	if err := ublTmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("generate ubl for %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

const ublDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
         xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2">
  <cbc:UBLVersionID>2.1</cbc:UBLVersionID>
  <cbc:ID>{{ esc .Invoice.Number }}</cbc:ID>
  <cbc:IssueDate>{{ date .Invoice.IssueDate }}</cbc:IssueDate>
  <cbc:DueDate>{{ date .Invoice.DueDate }}</cbc:DueDate>
  <cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>
  <cbc:DocumentCurrencyCode>{{ .Currency }}</cbc:DocumentCurrencyCode>
  <cac:AccountingSupplierParty>
    <cac:Party>
{{- if .Company }}
      <cac:PartyName>
        <cbc:Name>{{ esc .Company.Name }}</cbc:Name>
      </cac:PartyName>
      <cac:PostalAddress>
        <cbc:StreetName>{{ esc .Company.Address }}</cbc:StreetName>
      </cac:PostalAddress>
      <cac:PartyTaxScheme>
        <cbc:CompanyID>{{ esc .Company.TaxID }}</cbc:CompanyID>
        <cac:TaxScheme>
          <cbc:ID>VAT</cbc:ID>
        </cac:TaxScheme>
      </cac:PartyTaxScheme>
{{- end }}
    </cac:Party>
  </cac:AccountingSupplierParty>
  <cac:AccountingCustomerParty>
    <cac:Party>
      <cac:PartyName>
        <cbc:Name>{{ esc .Invoice.ClientName }}</cbc:Name>
      </cac:PartyName>
      <cac:PostalAddress>
        <cbc:StreetName>{{ esc .Invoice.ClientAddress }}</cbc:StreetName>
      </cac:PostalAddress>
{{- if .Invoice.ClientTaxID }}
      <cac:PartyTaxScheme>
        <cbc:CompanyID>{{ esc .Invoice.ClientTaxID }}</cbc:CompanyID>
        <cac:TaxScheme>
          <cbc:ID>VAT</cbc:ID>
        </cac:TaxScheme>
      </cac:PartyTaxScheme>
{{- end }}
    </cac:Party>
  </cac:AccountingCustomerParty>
  <cac:TaxTotal>
    <cbc:TaxAmount currencyID="{{ .Currency }}">0.00</cbc:TaxAmount>
  </cac:TaxTotal>
  <cac:LegalMonetaryTotal>
    <cbc:LineExtensionAmount currencyID="{{ .Currency }}">{{ money .Invoice.TotalAmount }}</cbc:LineExtensionAmount>
    <cbc:TaxExclusiveAmount currencyID="{{ .Currency }}">{{ money .Invoice.TotalAmount }}</cbc:TaxExclusiveAmount>
    <cbc:TaxInclusiveAmount currencyID="{{ .Currency }}">{{ money .Invoice.TotalAmount }}</cbc:TaxInclusiveAmount>
    <cbc:PayableAmount currencyID="{{ .Currency }}">{{ money .Invoice.TotalAmount }}</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
{{- range .Invoice.Lines }}
  <cac:InvoiceLine>
    <cbc:ID>{{ .Position }}</cbc:ID>
    <cbc:InvoicedQuantity>{{ money .Quantity }}</cbc:InvoicedQuantity>
    <cbc:LineExtensionAmount currencyID="{{ $.Currency }}">{{ money .Amount }}</cbc:LineExtensionAmount>
    <cac:Item>
      <cbc:Name>{{ esc .Description }}</cbc:Name>
    </cac:Item>
    <cac:Price>
      <cbc:PriceAmount currencyID="{{ $.Currency }}">{{ money .UnitPrice }}</cbc:PriceAmount>
    </cac:Price>
  </cac:InvoiceLine>
{{- end }}
</Invoice>
`
