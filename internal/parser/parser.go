// Package parser turns rendered HTML into DOM trees and pulls field values
// out of them with XPath.
package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/types"
)

// Parse parses an HTML string into a document root. Empty input yields
// ErrEmptyHTML.
func Parse(body string) (*html.Node, error) {
	if strings.TrimSpace(body) == "" {
		return nil, types.ErrEmptyHTML
	}
	return htmlquery.Parse(strings.NewReader(body))
}
