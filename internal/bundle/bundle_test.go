package bundle

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nikhilbhutani/pdfprecheck/internal/naming"
)

func doc(filename, text string) Document {
	return Document{Filename: filename, Name: naming.ParseFilename(filename), Text: text, Method: "text_layer"}
}

func TestRender_OrderAndFormat(t *testing.T) {
	docs := []Document{
		doc("SC_statement_2025-04-09_2025-05-08.pdf", "stmt may"),
		doc("SC_payslip_2025-04.pdf", "pay apr"),
		doc("notes.pdf", "loose notes"),
		doc("SC_payslip_2025-03.pdf", "pay mar"),
		doc("SC_statement_2025-03-08_2025-04-08.pdf", "stmt apr"),
		doc("SC_p60_2024.pdf", "p60"),
	}

	got := Render("SC", docs)
	want := "CLIENT_ID: SC\n" +
		"\n\n[PAYSLIP 1 – LABEL: 2025-03 – FILE: SC_payslip_2025-03.pdf]\npay mar\n" +
		"\n\n[PAYSLIP 2 – LABEL: 2025-04 – FILE: SC_payslip_2025-04.pdf]\npay apr\n" +
		"\n\n[BANK STATEMENT 1 – LABEL: 2025-03-08_2025-04-08 – FILE: SC_statement_2025-03-08_2025-04-08.pdf]\nstmt apr\n" +
		"\n\n[BANK STATEMENT 2 – LABEL: 2025-04-09_2025-05-08 – FILE: SC_statement_2025-04-09_2025-05-08.pdf]\nstmt may\n" +
		"\n\n[OTHER DOC 1 – LABEL: notes – FILE: notes.pdf]\nloose notes\n" +
		"\n\n[OTHER DOC 2 – LABEL: 2024 – FILE: SC_p60_2024.pdf]\np60\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_NoDocuments(t *testing.T) {
	if got := Render(UnknownClient, nil); got != "CLIENT_ID: UNKNOWN_CLIENT\n" {
		t.Fatalf("Render = %q", got)
	}
}

func TestRender_LineBreaksAreLF(t *testing.T) {
	got := Render("SC", []Document{doc("SC_payslip_2025-03.pdf", "gross\r\nnet\rtax")})
	if strings.Contains(got, "\r") {
		t.Fatalf("Render kept a carriage return: %q", got)
	}
	if !strings.HasSuffix(got, "\ngross\nnet\ntax\n") {
		t.Fatalf("Render = %q", got)
	}
}

func TestRender_StableForEqualLabels(t *testing.T) {
	docs := []Document{
		doc("SC_payslip_2025-03_b.pdf", "first"),
		{Filename: "dup-a.pdf", Name: naming.Name{ClientID: "SC", DocType: "payslip", Label: "2025-03"}, Text: "A"},
		{Filename: "dup-b.pdf", Name: naming.Name{ClientID: "SC", DocType: "payslip", Label: "2025-03"}, Text: "B"},
	}
	got := Render("SC", docs)
	a := strings.Index(got, "FILE: dup-a.pdf")
	b := strings.Index(got, "FILE: dup-b.pdf")
	c := strings.Index(got, "FILE: SC_payslip_2025-03_b.pdf")
	if !(a < b && b < c) {
		t.Fatalf("unexpected ordering in:\n%s", got)
	}
}

func TestDetectClient(t *testing.T) {
	tests := []struct {
		name         string
		files        []string
		wantClient   string
		wantWarnings []string
	}{
		{
			name:         "single client",
			files:        []string{"SC_payslip_2025-03.pdf", "SC_statement_a_b.pdf"},
			wantClient:   "SC",
			wantWarnings: []string{},
		},
		{
			name:         "no client",
			files:        []string{"scan.pdf", "other.pdf"},
			wantClient:   UnknownClient,
			wantWarnings: []string{},
		},
		{
			name:       "mixed clients",
			files:      []string{"misc.pdf", "SC_payslip_1.pdf", "JD_payslip_2.pdf", "SC_payslip_3.pdf", "AB_statement_x.pdf"},
			wantClient: "SC",
			wantWarnings: []string{
				"Mixed client IDs detected in filenames: SC and JD.",
				"Mixed client IDs detected in filenames: SC and AB.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var docs []Document
			for _, f := range tt.files {
				docs = append(docs, doc(f, ""))
			}
			client, warnings := DetectClient(docs)
			if client != tt.wantClient {
				t.Fatalf("client = %q, want %q", client, tt.wantClient)
			}
			if diff := cmp.Diff(tt.wantWarnings, warnings); diff != "" {
				t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	long := strings.Repeat("é", PreviewLimit+10)
	docs := []Document{
		doc("SC_payslip_2025-03.pdf", long),
		doc("loose.pdf", "x"),
	}
	docs[1].Err = "ocr failed"

	b := Build(docs)

	if b.ClientID != "SC" {
		t.Fatalf("ClientID = %q", b.ClientID)
	}
	if b.Filename != "SC_precheck_input.txt" {
		t.Fatalf("Filename = %q", b.Filename)
	}
	if len(b.Documents) != 2 {
		t.Fatalf("Documents = %d", len(b.Documents))
	}

	p := b.Documents[0]
	if p.Header != "PAYSLIP – 2025-03 – SC_payslip_2025-03.pdf" {
		t.Fatalf("Header = %q", p.Header)
	}
	if n := len([]rune(p.Text)); n != PreviewLimit {
		t.Fatalf("preview runes = %d, want %d", n, PreviewLimit)
	}
	if p.Chars != PreviewLimit+10 {
		t.Fatalf("Chars = %d", p.Chars)
	}
	if b.Documents[1].Header != "UNKNOWN – loose – loose.pdf" {
		t.Fatalf("Header = %q", b.Documents[1].Header)
	}
	if b.Documents[1].Error != "ocr failed" {
		t.Fatalf("Error not carried to preview")
	}
	if !strings.Contains(b.Text, long) {
		t.Fatalf("structured text must carry the full document text")
	}
	if b.Estimate.Tokens <= 0 {
		t.Fatalf("expected a token estimate")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"", 0, ""},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
