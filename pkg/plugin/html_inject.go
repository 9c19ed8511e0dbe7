package plugin

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func iterNode(node *html.Node, callback func(*html.Node) bool) bool {
	if !callback(node) {
		return false
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if !iterNode(child, callback) {
			return false
		}
	}
	return true
}

// InjectScript adds <script id=id src=src> to the end of <head> (or <body>
// when there is no head). Documents that already carry id are returned as is.
func InjectScript(content []byte, src string, id string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var headNode, bodyNode *html.Node
	found := false
	iterNode(doc, func(node *html.Node) bool {
		if node.Type != html.ElementNode {
			return true
		}
		for _, attr := range node.Attr {
			if attr.Key == "id" && attr.Val == id {
				found = true
				return false
			}
		}
		switch node.DataAtom {
		case atom.Head:
			headNode = node
		case atom.Body:
			bodyNode = node
		}
		return true
	})
	if found {
		return content, nil
	}
	parent := headNode
	if parent == nil {
		parent = bodyNode
	}
	if parent == nil {
		return content, nil
	}
	parent.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "src", Val: src},
			{Key: "async"},
		},
	})
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
