// Package naming parses the upload filename convention
// <CLIENT>_<doctype>_<label>.pdf, for example SC_payslip_2025-03.pdf or
// SC_statement_2025-03-08_2025-04-08.pdf.
package naming

import "strings"

const (
	TypePayslip   = "payslip"
	TypeStatement = "statement"
	TypeUnknown   = "unknown"
)

type Name struct {
	ClientID string `json:"client_id"`
	DocType  string `json:"doc_type"`
	Label    string `json:"label"`
}

// ParseFilename splits a filename into client id, document type and label.
// Names with fewer than three underscore-separated parts get an empty client
// id, type "unknown" and the whole stem as label.
func ParseFilename(filename string) Name {
	stem := filename
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		stem = filename[:i]
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return Name{DocType: TypeUnknown, Label: stem}
	}

	return Name{
		ClientID: parts[0],
		DocType:  parts[1],
		Label:    strings.Join(parts[2:], "_"),
	}
}

// Known reports whether the document type has its own section in the bundle.
func (n Name) Known() bool {
	return n.DocType == TypePayslip || n.DocType == TypeStatement
}
