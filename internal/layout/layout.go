// Package layout tracks the resizable sidebar: visibility, drag state,
// and width. Width is kept in layout units rather than terminal cells
// so the bounds survive font and terminal changes; the view divides by
// CellScale when rendering.
package layout

// Width bounds in layout units. A drag that would push the sidebar
// outside the open interval leaves the width where it is.
const (
	MinWidth     = 250
	MaxWidth     = 600
	DefaultWidth = 300
)

// CellScale converts layout units to terminal columns.
const CellScale = 10

// Sidebar is the sidebar's layout state. Zero value is hidden at the
// default width; use New for an open sidebar.
type Sidebar struct {
	visible  bool
	insights bool
	resizing bool
	width    int
}

// New returns a visible sidebar at the default width.
func New() Sidebar {
	return Sidebar{visible: true, width: DefaultWidth}
}

// Visible reports whether the sidebar is shown.
func (s Sidebar) Visible() bool { return s.visible }

// Resizing reports whether a drag is in progress.
func (s Sidebar) Resizing() bool { return s.resizing }

// Width returns the current width in layout units.
func (s Sidebar) Width() int {
	if s.width == 0 {
		return DefaultWidth
	}
	return s.width
}

// Cells returns the rendered width in terminal columns.
func (s Sidebar) Cells() int { return s.Width() / CellScale }

// InsightsVisible reports whether the insights panel is shown. The
// panel renders inside the sidebar, so it only appears while the
// sidebar itself is visible.
func (s Sidebar) InsightsVisible() bool { return s.visible && s.insights }

// ToggleInsights flips the insights panel.
func (s Sidebar) ToggleInsights() Sidebar {
	s.insights = !s.insights
	return s
}

// Toggle flips visibility. Hiding mid-drag also ends the drag.
func (s Sidebar) Toggle() Sidebar {
	s.visible = !s.visible
	if !s.visible {
		s.resizing = false
	}
	return s
}

// StartResize begins a drag. No-op while hidden.
func (s Sidebar) StartResize() Sidebar {
	if s.visible {
		s.resizing = true
	}
	return s
}

// EndResize finishes a drag.
func (s Sidebar) EndResize() Sidebar {
	s.resizing = false
	return s
}

// SetWidth applies a dragged width if it falls strictly inside the
// bounds; out-of-range values are dropped rather than clamped, so the
// sidebar stops moving at the edge instead of snapping to it.
func (s Sidebar) SetWidth(w int) Sidebar {
	if !s.resizing {
		return s
	}
	if w > MinWidth && w < MaxWidth {
		s.width = w
	}
	return s
}
