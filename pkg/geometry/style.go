package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Style is the subset of host style metadata that affects axis inference.
// It is decoded from an element's "style" payload entry.
type Style struct {
	Display             string `mapstructure:"display"`
	FlexDirection       string `mapstructure:"flexDirection"`
	GridTemplateColumns string `mapstructure:"gridTemplateColumns"`
	GridTemplateRows    string `mapstructure:"gridTemplateRows"`
}

// LayoutOf reads layout metadata from an element's payload.
//
// An explicit "layout" entry ({direction, grid_columns, grid_rows}) takes precedence
// over a CSS-like "style" entry. Elements carrying neither yield LayoutUnknown.
func LayoutOf(e domain.Element) (domain.Layout, error) {
	if raw, ok := e.Payload["layout"]; ok && raw != nil {
		var layout domain.Layout
		if err := decode(raw, &layout, "json"); err != nil {
			return domain.Layout{}, fmt.Errorf("element %q: layout: %w", e.ID, err)
		}
		return layout, nil
	}

	raw, ok := e.Payload["style"]
	if !ok || raw == nil {
		return domain.Layout{}, nil
	}
	var style Style
	if err := decode(raw, &style, "mapstructure"); err != nil {
		return domain.Layout{}, fmt.Errorf("element %q: style: %w", e.ID, err)
	}
	return style.Layout(), nil
}

// Layout maps the style onto layout metadata.
func (s Style) Layout() domain.Layout {
	switch strings.TrimSpace(strings.ToLower(s.Display)) {
	case "grid", "inline-grid":
		return domain.Layout{
			Direction:   domain.LayoutGrid,
			GridColumns: trackCount(s.GridTemplateColumns),
			GridRows:    trackCount(s.GridTemplateRows),
		}
	case "flex", "inline-flex":
		if strings.HasPrefix(strings.ToLower(s.FlexDirection), "column") {
			return domain.Layout{Direction: domain.LayoutColumn}
		}
		return domain.Layout{Direction: domain.LayoutRow}
	case "block", "list-item":
		return domain.Layout{Direction: domain.LayoutColumn}
	}
	return domain.Layout{}
}

func decode(input, output any, tag string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tag,
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// trackCount counts grid tracks in a template such as "1fr 1fr", "repeat(3, 1fr)" or "4".
func trackCount(template string) int {
	template = strings.TrimSpace(template)
	if template == "" || template == "none" {
		return 0
	}
	if n, err := strconv.Atoi(template); err == nil {
		return n
	}

	count := 0
	for template != "" {
		if strings.HasPrefix(template, "repeat(") {
			end := strings.IndexByte(template, ')')
			if end < 0 {
				return count + 1
			}
			args := strings.SplitN(template[len("repeat("):end], ",", 2)
			n, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || n < 1 {
				n = 1
			}
			if len(args) == 2 {
				n *= max(1, len(strings.Fields(args[1])))
			}
			count += n
			template = strings.TrimSpace(template[end+1:])
			continue
		}
		field, rest, _ := strings.Cut(template, " ")
		if field != "" {
			count++
		}
		template = strings.TrimSpace(rest)
	}
	return count
}
