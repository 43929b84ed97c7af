// Package bundle assembles extracted documents into the single structured
// text block handed to a chat model.
package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nikhilbhutani/pdfprecheck/internal/naming"
	"github.com/nikhilbhutani/pdfprecheck/pkg/tokenizer"
)

const (
	UnknownClient = "UNKNOWN_CLIENT"
	PreviewLimit  = 4000

	sep = " – "
)

type Document struct {
	Filename string `json:"filename"`
	naming.Name
	Text   string `json:"text"`
	Method string `json:"method"`
	Pages  int    `json:"pages"`
	Err    string `json:"error,omitempty"`
}

type Preview struct {
	Header   string `json:"header"`
	Filename string `json:"filename"`
	ClientID string `json:"client_id"`
	DocType  string `json:"doc_type"`
	Label    string `json:"label"`
	Method   string `json:"method"`
	Pages    int    `json:"pages"`
	Chars    int    `json:"chars"`
	Text     string `json:"preview"`
	Error    string `json:"error,omitempty"`
}

type Bundle struct {
	ClientID  string             `json:"client_id"`
	Warnings  []string           `json:"warnings"`
	Documents []Preview          `json:"documents"`
	Text      string             `json:"structured_text"`
	Filename  string             `json:"download_filename"`
	Estimate  tokenizer.Estimate `json:"estimate"`
}

// Build detects the client, orders the documents and renders the text block.
// docs must be in upload order.
func Build(docs []Document) *Bundle {
	clientID, warnings := DetectClient(docs)

	b := &Bundle{
		ClientID:  clientID,
		Warnings:  warnings,
		Documents: make([]Preview, 0, len(docs)),
		Text:      Render(clientID, docs),
		Filename:  DownloadFilename(clientID),
	}
	for _, d := range docs {
		b.Documents = append(b.Documents, previewOf(d))
	}
	b.Estimate = tokenizer.EstimateFor(b.Text, tokenizer.DefaultModel)
	return b
}

// DetectClient returns the first non-empty client id and one warning for
// every later document naming a different client.
func DetectClient(docs []Document) (string, []string) {
	clientID := ""
	warnings := []string{}
	for _, d := range docs {
		switch {
		case d.ClientID == "":
		case clientID == "":
			clientID = d.ClientID
		case d.ClientID != clientID:
			warnings = append(warnings,
				fmt.Sprintf("Mixed client IDs detected in filenames: %s and %s.", clientID, d.ClientID))
		}
	}
	if clientID == "" {
		clientID = UnknownClient
	}
	return clientID, warnings
}

// Render produces the structured text: payslips and statements sorted by
// label, then every other document in upload order. Line breaks are always
// LF.
func Render(clientID string, docs []Document) string {
	var payslips, statements, others []Document
	for _, d := range docs {
		switch d.DocType {
		case naming.TypePayslip:
			payslips = append(payslips, d)
		case naming.TypeStatement:
			statements = append(statements, d)
		default:
			others = append(others, d)
		}
	}
	byLabel := func(s []Document) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Label < s[j].Label })
	}
	byLabel(payslips)
	byLabel(statements)

	var sb strings.Builder
	fmt.Fprintf(&sb, "CLIENT_ID: %s\n", clientID)
	writeBlocks(&sb, "PAYSLIP", payslips)
	writeBlocks(&sb, "BANK STATEMENT", statements)
	writeBlocks(&sb, "OTHER DOC", others)
	return NormalizeNewlines(sb.String())
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines turns CRLF and lone CR line breaks into LF.
func NormalizeNewlines(s string) string {
	return newlines.Replace(s)
}

func writeBlocks(sb *strings.Builder, kind string, docs []Document) {
	for i, d := range docs {
		fmt.Fprintf(sb, "\n\n[%s %d%sLABEL: %s%sFILE: %s]\n%s\n", kind, i+1, sep, d.Label, sep, d.Filename, d.Text)
	}
}

// Header is the per-document title shown above its preview.
func Header(d Document) string {
	return strings.ToUpper(d.DocType) + sep + d.Label + sep + d.Filename
}

// DownloadFilename names the .txt download for a client.
func DownloadFilename(clientID string) string {
	return clientID + "_precheck_input.txt"
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func previewOf(d Document) Preview {
	return Preview{
		Header:   Header(d),
		Filename: d.Filename,
		ClientID: d.ClientID,
		DocType:  d.DocType,
		Label:    d.Label,
		Method:   d.Method,
		Pages:    d.Pages,
		Chars:    len([]rune(d.Text)),
		Text:     Truncate(d.Text, PreviewLimit),
		Error:    d.Err,
	}
}
