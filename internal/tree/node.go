package tree

import (
	"fmt"
	"strings"
)

// ControlType classifies a UI node the way the OS automation layer does.
type ControlType string

// Control types recognized by the automation layer.
const (
	TypeButton       ControlType = "Button"
	TypeCalendar     ControlType = "Calendar"
	TypeCheckBox     ControlType = "CheckBox"
	TypeComboBox     ControlType = "ComboBox"
	TypeCustom       ControlType = "Custom"
	TypeDataGrid     ControlType = "DataGrid"
	TypeDataItem     ControlType = "DataItem"
	TypeDocument     ControlType = "Document"
	TypeEdit         ControlType = "Edit"
	TypeGroup        ControlType = "Group"
	TypeHeader       ControlType = "Header"
	TypeHeaderItem   ControlType = "HeaderItem"
	TypeHyperlink    ControlType = "Hyperlink"
	TypeImage        ControlType = "Image"
	TypeList         ControlType = "List"
	TypeListItem     ControlType = "ListItem"
	TypeMenu         ControlType = "Menu"
	TypeMenuBar      ControlType = "MenuBar"
	TypeMenuItem     ControlType = "MenuItem"
	TypePane         ControlType = "Pane"
	TypeProgressBar  ControlType = "ProgressBar"
	TypeRadioButton  ControlType = "RadioButton"
	TypeScrollBar    ControlType = "ScrollBar"
	TypeSeparator    ControlType = "Separator"
	TypeSlider       ControlType = "Slider"
	TypeSpinner      ControlType = "Spinner"
	TypeSplitButton  ControlType = "SplitButton"
	TypeStatusBar    ControlType = "StatusBar"
	TypeTab          ControlType = "Tab"
	TypeTabItem      ControlType = "TabItem"
	TypeTable        ControlType = "Table"
	TypeText         ControlType = "Text"
	TypeTitleBar     ControlType = "TitleBar"
	TypeToolBar      ControlType = "ToolBar"
	TypeToolTip      ControlType = "ToolTip"
	TypeTree         ControlType = "Tree"
	TypeTreeItem     ControlType = "TreeItem"
	TypeWindow       ControlType = "Window"
	TypeAppBar       ControlType = "AppBar"
	TypeSemanticZoom ControlType = "SemanticZoom"
	TypeThumb        ControlType = "Thumb"
)

// RuntimeID is the opaque identifier the automation layer assigns to a live
// element. It is only meaningful relative to the snapshot that produced it;
// comparing runtime ids across snapshots is never valid.
type RuntimeID []int32

// Equal reports element-wise equality.
func (r RuntimeID) Equal(other RuntimeID) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the id is empty.
func (r RuntimeID) IsZero() bool { return len(r) == 0 }

// Key returns a string form usable as a map key.
func (r RuntimeID) Key() string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	return b.String()
}

// String renders the id the way the automation layer logs it, e.g. [42,1234,456].
func (r RuntimeID) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Node is one element of a captured UI tree. Fields are read-only once the
// owning Snapshot is built.
type Node struct {
	Type      ControlType       `json:"control_type"`
	Name      string            `json:"name"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	RuntimeID RuntimeID         `json:"runtime_id"`

	// Ordinal is the 1-based position among siblings sharing this node's
	// name and control type. Computed when the snapshot is built.
	Ordinal int `json:"ordinal"`

	Children []*Node `json:"children,omitempty"`
}

// Attr returns the named attribute, or empty string when absent.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}
