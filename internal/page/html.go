package page

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// HTMLDocument is a Document backed by a parsed HTML tree. Element state
// changes are applied to the tree so Render reflects them.
type HTMLDocument struct {
	mu      sync.Mutex
	root    *html.Node
	docElem *html.Node
	ids     map[string]*html.Node
	buttons []*Button
	// selector is the first element carrying RangeSelectorClass
	selector *html.Node
	script   *html.Node
}

// Parse reads an HTML page into an HTMLDocument.
func Parse(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	d := &HTMLDocument{
		root: root,
		ids:  make(map[string]*html.Node),
	}
	d.index(root, false)
	return d, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s))
}

func (d *HTMLDocument) index(n *html.Node, inSelector bool) {
	if n.Type == html.ElementNode {
		if d.docElem == nil && n.Data == "html" {
			d.docElem = n
		}
		if id, ok := attr(n, "id"); ok {
			if _, dup := d.ids[id]; !dup {
				d.ids[id] = n
			}
		}
		if hasClass(n, RangeSelectorClass) {
			if d.selector == nil {
				d.selector = n
			}
			inSelector = true
		}
		if inSelector && n.Data == "button" {
			if _, ok := attr(n, "data-days"); ok {
				d.buttons = append(d.buttons, &Button{doc: d, node: n})
			}
		}
		if d.script == nil && n.Data == "script" {
			if _, ok := attr(n, "data-coin-id"); ok {
				d.script = n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c, inSelector)
	}
}

// ElementByID implements Document.
func (d *HTMLDocument) ElementByID(id string) (Element, bool) {
	n, ok := d.ids[id]
	if !ok {
		return nil, false
	}
	return &node{doc: d, n: n}, true
}

// RangeSelector implements Document.
func (d *HTMLDocument) RangeSelector() (Element, bool) {
	if d.selector == nil {
		return nil, false
	}
	return &node{doc: d, n: d.selector}, true
}

// RangeButtons implements Document.
func (d *HTMLDocument) RangeButtons() []RangeButton {
	out := make([]RangeButton, len(d.buttons))
	for i, b := range d.buttons {
		out[i] = b
	}
	return out
}

// RootAttr implements Document.
func (d *HTMLDocument) RootAttr(name string) (string, bool) {
	if d.docElem == nil {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return attr(d.docElem, name)
}

// RootHasClass implements Document.
func (d *HTMLDocument) RootHasClass(class string) bool {
	if d.docElem == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return hasClass(d.docElem, class)
}

// ChartData implements Document.
func (d *HTMLDocument) ChartData() map[string]string {
	data := make(map[string]string)
	if d.script == nil {
		return data
	}
	for _, a := range d.script.Attr {
		if name, ok := strings.CutPrefix(a.Key, "data-"); ok && name != "" {
			data[datasetKey(name)] = a.Val
		}
	}
	return data
}

// ClickRange clicks the first range button for days. It reports whether
// such a button exists.
func (d *HTMLDocument) ClickRange(days int) bool {
	for _, b := range d.buttons {
		if n, ok := b.Days(); ok && n == days {
			b.Click()
			return true
		}
	}
	return false
}

// Render writes the document, including visibility and active state
// changes, as HTML.
func (d *HTMLDocument) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// node is an Element over an html.Node
type node struct {
	doc *HTMLDocument
	n   *html.Node
}

func (e *node) ID() string {
	id, _ := attr(e.n, "id")
	return id
}

func (e *node) Show() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.n, "hidden")
	setDisplay(e.n, "")
}

func (e *node) Hide() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setDisplay(e.n, hiddenDisplayKeyword)
}

func (e *node) Visible() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if _, ok := attr(e.n, "hidden"); ok {
		return false
	}
	return display(e.n) != hiddenDisplayKeyword
}

// Button is a RangeButton over a <button data-days> node.
type Button struct {
	doc      *HTMLDocument
	node     *html.Node
	handlers []func()
}

// Days implements RangeButton.
func (b *Button) Days() (int, bool) {
	raw, _ := attr(b.node, "data-days")
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || days < 1 {
		return 0, false
	}
	return days, true
}

// SetActive implements RangeButton.
func (b *Button) SetActive(active bool) {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	toggleClass(b.node, ActiveButtonClass, active)
}

// Active implements RangeButton.
func (b *Button) Active() bool {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return hasClass(b.node, ActiveButtonClass)
}

// OnClick implements RangeButton.
func (b *Button) OnClick(handler func()) {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Click runs the registered handlers in registration order.
func (b *Button) Click() {
	b.doc.mu.Lock()
	handlers := append([]func(){}, b.handlers...)
	b.doc.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func hasClass(n *html.Node, class string) bool {
	classes, _ := attr(n, "class")
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

func toggleClass(n *html.Node, class string, on bool) {
	raw, _ := attr(n, "class")
	var kept []string
	for _, c := range strings.Fields(raw) {
		if c != class {
			kept = append(kept, c)
		}
	}
	if on {
		kept = append(kept, class)
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// display returns the inline display value, lowercased
func display(n *html.Node) string {
	style, _ := attr(n, "style")
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(prop), "display") {
			return strings.ToLower(strings.TrimSpace(val))
		}
	}
	return ""
}

// setDisplay rewrites the inline display declaration, removing it when
// value is empty
func setDisplay(n *html.Node, value string) {
	style, _ := attr(n, "style")
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(prop), "display") {
			continue
		}
		decls = append(decls, decl)
	}
	if value != "" {
		decls = append(decls, "display: "+value)
	}
	if len(decls) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", strings.Join(decls, "; "))
}

// datasetKey converts a data-* suffix to its dataset name: coin-id -> coinId
func datasetKey(name string) string {
	parts := strings.Split(name, "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
