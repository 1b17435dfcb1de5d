package ubl

import (
	"encoding/xml"
	"strings"
)

// Namespaces of a UBL 2.1 invoice document.
const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
)

var prefixes = map[string]string{
	"cbc": nsCBC,
	"cac": nsCAC,
}

// requiredFields lists the paths a UBL invoice must carry, relative to
// the root element. Paths use the conventional cbc/cac prefixes.
var requiredFields = []struct {
	path string
	name string
}{
	{"cbc:ID", "invoice number"},
	{"cbc:IssueDate", "issue date"},
	{"cbc:InvoiceTypeCode", "invoice type code"},
	{"cac:AccountingSupplierParty/cac:Party/cac:PartyName/cbc:Name", "supplier name"},
	{"cac:AccountingCustomerParty/cac:Party/cac:PartyName/cbc:Name", "customer name"},
	{"cac:TaxTotal/cbc:TaxAmount", "tax amount"},
	{"cac:LegalMonetaryTotal/cbc:PayableAmount", "payable amount"},
}

// xmlNode is a generic element tree. Text holds the character data of
// the element itself, Children every nested element in document order.
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// find walks a prefixed path like "cac:Party/cbc:Name" and returns the
// first matching descendant, or nil.
func (n *xmlNode) find(path string) *xmlNode {
	cur := n
	for _, step := range strings.Split(path, "/") {
		prefix, local, ok := strings.Cut(step, ":")
		if !ok {
			local, prefix = prefix, ""
		}
		var next *xmlNode
		for i := range cur.Children {
			c := &cur.Children[i]
			if c.XMLName.Local == local && c.XMLName.Space == prefixes[prefix] {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func (n *xmlNode) count(local, space string) int {
	total := 0
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local && n.Children[i].XMLName.Space == space {
			total++
		}
	}
	return total
}

// Validate checks a UBL 2.1 invoice document and reports every finding.
// It never touches storage or the network.
func Validate(data []byte) *Report {
	report := &Report{Valid: true}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		report.fail("document is not well-formed XML: %v", err)
		return report
	}

	if root.XMLName.Local == "Invoice" && root.XMLName.Space == nsInvoice {
		report.add(LevelSuccess, "root element is a UBL 2.1 Invoice")
	} else {
		report.fail("root element is {%s}%s, expected {%s}Invoice", root.XMLName.Space, root.XMLName.Local, nsInvoice)
	}

	for _, field := range requiredFields {
		node := root.find(field.path)
		if node == nil || strings.TrimSpace(node.Text) == "" {
			report.fail("missing mandatory field %s (%s)", field.name, field.path)
			continue
		}
		report.add(LevelSuccess, "found %s: %s", field.name, strings.TrimSpace(node.Text))
	}

	lines := root.count("InvoiceLine", nsCAC)
	report.add(LevelInfo, "document has %d invoice line(s)", lines)
	if lines == 0 {
		report.add(LevelWarning, "document has no invoice lines")
	}

	return report
}
