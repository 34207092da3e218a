package content

import (
	"bytes"
	"errors"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrFragmentNotFound is returned when the selector matches no element.
var ErrFragmentNotFound = errors.New("selector matched no element")

// MainSelector selects the experiment markup inside a preview page.
const MainSelector = "main"

// ExtractFragment returns the outer HTML of the first element matching selector.
func ExtractFragment(r io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", ErrFragmentNotFound
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, sel.Get(0)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
