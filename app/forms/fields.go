package forms

import (
	"html/template"
	"sort"
	"strings"
)

// Attrs are the HTML attributes rendered on a field's widget.
type Attrs map[string]string

// Field holds the presentation settings of one form field.
type Field struct {
	Label string
	Help  string
	Attrs Attrs
}

// FieldTable configures how each field of a form is presented.
type FieldTable map[string]Field

func (t FieldTable) Label(name string) string {
	return t[name].Label
}

func (t FieldTable) Help(name string) string {
	return t[name].Help
}

// HTMLAttrs renders the attributes of a field in a stable order.
// Attributes with an empty value are rendered as boolean attributes.
func (t FieldTable) HTMLAttrs(name string) template.HTMLAttr {
	attrs := t[name].Attrs
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(template.HTMLEscapeString(k))
		if v := attrs[k]; v != "" {
			sb.WriteString(`="`)
			sb.WriteString(template.HTMLEscapeString(v))
			sb.WriteByte('"')
		}
	}
	return template.HTMLAttr(sb.String())
}

var CategoryFields = FieldTable{
	"name": {
		Label: "Category name",
		Help:  "Max. 200 characters",
		Attrs: Attrs{"class": "form-control", "placeholder": "Enter category name", "maxlength": "200", "required": ""},
	},
	"slug": {
		Label: "Slug",
		Help:  "Leave empty to derive it from the name. Cannot be changed later.",
		Attrs: Attrs{"class": "form-control", "maxlength": "200", "pattern": "[a-z0-9]+(-[a-z0-9]+)*"},
	},
	"description": {
		Label: "Description",
		Help:  "Optional",
		Attrs: Attrs{"class": "form-control", "rows": "4", "placeholder": "Short category description..."},
	},
	"is_active": {
		Label: "Active",
		Attrs: Attrs{"class": "form-check-input"},
	},
}

var ProductFields = FieldTable{
	"name": {
		Label: "Product name",
		Attrs: Attrs{"class": "form-control", "placeholder": "Product name", "maxlength": "255", "required": ""},
	},
	"slug": {
		Label: "Slug",
		Help:  "Leave empty to derive it from the name. Cannot be changed later.",
		Attrs: Attrs{"class": "form-control", "maxlength": "255", "pattern": "[a-z0-9]+(-[a-z0-9]+)*"},
	},
	"category": {
		Label: "Category",
		Attrs: Attrs{"class": "form-select", "required": ""},
	},
	"description": {
		Label: "Description",
		Attrs: Attrs{"class": "form-control", "rows": "5", "placeholder": "Detailed product description..."},
	},
	"price": {
		Label: "Price",
		Help:  "Format: 999.99",
		Attrs: Attrs{"class": "form-control", "type": "number", "step": "0.01", "min": "0.01", "placeholder": "0.00", "required": ""},
	},
	"stock": {
		Label: "Stock",
		Help:  "Minimum value: 0",
		Attrs: Attrs{"class": "form-control", "type": "number", "min": "0", "placeholder": "0", "required": ""},
	},
	"is_active": {
		Label: "Available for sale",
		Attrs: Attrs{"class": "form-check-input"},
	},
	"image": {
		Label: "Image",
		Help:  "Recommended size: 800x800px, JPG/PNG",
		Attrs: Attrs{"class": "form-control", "accept": "image/*"},
	},
}
