// Package selector resolves declarative element specs (tag name plus optional
// class or id) against a parsed HTML document.
package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextAttr is the pseudo attribute that selects an element's visible text.
const TextAttr = "text"

// Strategy is the lookup used to resolve an Element.
type Strategy int

const (
	// ByTag matches on tag name alone.
	ByTag Strategy = iota
	// ByClass matches on tag name plus every class token.
	ByClass
	// ByID matches on tag name plus the id attribute.
	ByID
)

func (s Strategy) String() string {
	switch s {
	case ByID:
		return "id"
	case ByClass:
		return "class"
	default:
		return "tag"
	}
}

// Element locates a DOM region by tag name, optionally narrowed by class or id.
// An id takes precedence over a class.
type Element struct {
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Strategy returns the lookup variant for e.
func (e Element) Strategy() Strategy {
	switch {
	case strings.TrimSpace(e.ID) != "":
		return ByID
	case strings.TrimSpace(e.Class) != "":
		return ByClass
	default:
		return ByTag
	}
}

// Field extracts a single value from the first descendant matching Name.
type Field struct {
	Name string `json:"name"`
	Attr string `json:"attr"`
}

// ItemSpec describes the repeated elements of a link list and the title and
// link fields inside each of them.
type ItemSpec struct {
	Element
	Title Field `json:"title"`
	Link  Field `json:"link"`
}

// ListSpec describes where the link list lives on an index page.
type ListSpec struct {
	Container Element  `json:"target_list_container"`
	Item      ItemSpec `json:"target_list_item"`
}

// TextSpec describes the repeated text-bearing elements of an article.
type TextSpec struct {
	Element
	Attr string `json:"attr"`
}

// ArticleSpec describes where the body text lives on an article page.
type ArticleSpec struct {
	Container Element  `json:"target_container"`
	TextItem  TextSpec `json:"target_text_item"`
}

// Describe renders e as a short CSS-like label for log output.
func Describe(e Element) string {
	name := tagOrAny(e.Name)
	switch e.Strategy() {
	case ByID:
		return name + "#" + strings.TrimSpace(e.ID)
	case ByClass:
		return name + "." + strings.Join(strings.Fields(e.Class), ".")
	default:
		return name
	}
}

// Container resolves spec against root. With neither id nor class set the root
// itself is the container. A container that cannot be found yields an empty
// selection rather than an error.
func Container(root *goquery.Selection, spec Element) *goquery.Selection {
	if root == nil {
		return &goquery.Selection{}
	}

	if spec.Strategy() == ByTag {
		return root
	}
	return matching(root, spec).First()
}

// Items returns every descendant of container matching spec, in document order.
func Items(container *goquery.Selection, spec Element) *goquery.Selection {
	if container == nil || container.Length() == 0 {
		return &goquery.Selection{}
	}
	return matching(container, spec)
}

// Extract returns the value f selects inside scope. The second return reports
// whether a matching element was found at all.
func (f Field) Extract(scope *goquery.Selection) (string, bool) {
	el := f.element(scope)
	if el == nil {
		return "", false
	}

	if f.attr() == TextAttr {
		return VisibleText(el), true
	}
	value, _ := el.Attr(f.attr())
	return strings.TrimSpace(value), true
}

// Has reports whether the element f selects inside scope carries f's
// attribute. The text pseudo attribute is always present.
func (f Field) Has(scope *goquery.Selection) bool {
	el := f.element(scope)
	if el == nil {
		return false
	}
	if f.attr() == TextAttr {
		return true
	}
	_, ok := el.Attr(f.attr())
	return ok
}

func (f Field) attr() string {
	attr := strings.TrimSpace(f.Attr)
	if attr == "" {
		return TextAttr
	}
	return attr
}

// element finds the first descendant of scope named f.Name. When scope has no
// such descendant but is itself that tag, scope is used.
func (f Field) element(scope *goquery.Selection) *goquery.Selection {
	if scope == nil || scope.Length() == 0 {
		return nil
	}

	name := tagOrAny(f.Name)
	if found := scope.Find(name).First(); found.Length() > 0 {
		return found
	}
	if name != "*" && goquery.NodeName(scope.First()) == strings.ToLower(name) {
		return scope.First()
	}
	return nil
}

// VisibleText returns the trimmed text of sel with script-like content removed
// and runs of whitespace collapsed to a single space.
func VisibleText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	clone := sel.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

func matching(scope *goquery.Selection, spec Element) *goquery.Selection {
	candidates := scope.Find(tagOrAny(spec.Name))

	switch spec.Strategy() {
	case ByID:
		id := strings.TrimSpace(spec.ID)
		return candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
			value, ok := s.Attr("id")
			return ok && value == id
		})
	case ByClass:
		classes := strings.Fields(spec.Class)
		return candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
			for _, class := range classes {
				if !s.HasClass(class) {
					return false
				}
			}
			return true
		})
	default:
		return candidates
	}
}

func tagOrAny(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "*"
	}
	return name
}
