package check

import (
	"bytes"

	"golang.org/x/net/html"
)

// assetAttrs lists the attributes that hold asset references per element.
var assetAttrs = map[string][]string{
	"img":    {"src"},
	"a":      {"href"},
	"source": {"src"},
	"link":   {"href"},
	"script": {"src"},
	"div":    {"data-image"},
}

// assetRefs collects the values of asset-bearing attributes in doc order.
func assetRefs(doc []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, key := range assetAttrs[n.Data] {
				for _, a := range n.Attr {
					if a.Key == key && a.Val != "" {
						refs = append(refs, a.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return refs, nil
}
