// Package scontrino renders the printable proof-of-order receipt. The
// output is a minimal single-page PDF built byte by byte, with no
// rendering engine behind it: a fixed five-object graph (catalog, page
// tree, page, content stream, font) followed by a cross-reference table
// recording the exact byte offset of every object.
package scontrino

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Receipt is the immutable order snapshot the encoder works from.
type Receipt struct {
	OrderID  string
	Customer string
	Table    int
	Items    []string
}

// ErrEmptyReceipt is returned for snapshots that cannot produce a
// meaningful document.
var ErrEmptyReceipt = errors.New("receipt needs an order id and at least one item")

// objectCount is fixed: catalog, pages, page, contents, font.
const objectCount = 5

// Render produces the receipt document. Object offsets in the trailer are
// byte-exact; an off-by-one there corrupts the file, so offsets are taken
// from the buffer length immediately before each object is written.
//
// Item lists longer than the visible page area overflow it; there is no
// pagination.
func Render(r Receipt) ([]byte, error) {
	if r.OrderID == "" || len(r.Items) == 0 {
		return nil, ErrEmptyReceipt
	}

	content := contentStream(r)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, objectCount+1)
	writeObject := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	writeObject(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObject(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObject(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	writeObject(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	writeObject(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objectCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= objectCount; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		objectCount+1, xref)

	return buf.Bytes(), nil
}

// contentStream emits one Td/Tj pair per rendered line, the title first,
// then the order fields, then the item list.
func contentStream(r Receipt) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 16 Tf\n")

	line := func(dx, dy int, text string) {
		fmt.Fprintf(&b, "%d %d Td\n(%s) Tj\n", dx, dy, escapeText(text))
	}

	line(72, 770, "Comprovante de Pedido")
	b.WriteString("/F1 11 Tf\n")
	line(0, -30, "ID do Pedido: "+r.OrderID)
	line(0, -18, "Cliente: "+r.Customer)
	line(0, -18, "Mesa: "+strconv.Itoa(r.Table))
	line(0, -24, "Itens do Pedido:")
	for _, item := range r.Items {
		line(0, -16, "- "+item)
	}

	b.WriteString("ET")
	return b.String()
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// escapeText prefixes the string delimiters and the escape character
// itself so free text can be embedded in a literal string. Applied
// unconditionally to every rendered line.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}
