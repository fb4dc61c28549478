package data

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Default attribute names used when deriving record labels.
const (
	DefaultLabelAttribute   = "NTAName"
	DefaultTooltipAttribute = "tooltip"
)

// LabelPolicy determines what happens to a boundary record that has no usable label attribute.
type LabelPolicy int

const (
	// LabelPolicyFail rejects the whole dataset with a *MissingAttributeError.
	LabelPolicyFail LabelPolicy = iota
	// LabelPolicySkip drops the record from the dataset.
	LabelPolicySkip
	// LabelPolicyDefault labels the record with the configured default label.
	LabelPolicyDefault
)

func (p LabelPolicy) String() string {

	switch p {
	case LabelPolicyFail:
		return "fail"
	case LabelPolicySkip:
		return "skip"
	case LabelPolicyDefault:
		return "default"
	default:
		return fmt.Sprintf("LabelPolicy(%d)", int(p))
	}
}

// ParseLabelPolicy returns the LabelPolicy named by 's' ("fail", "skip" or "default").
func ParseLabelPolicy(s string) (LabelPolicy, error) {

	switch strings.ToLower(s) {
	case "", "fail":
		return LabelPolicyFail, nil
	case "skip":
		return LabelPolicySkip, nil
	case "default":
		return LabelPolicyDefault, nil
	default:
		return LabelPolicyFail, fmt.Errorf("Invalid label policy '%s'", s)
	}
}

// Tooltip returns the on-hover HTML fragment for a neighbourhood named 'name'.
func Tooltip(name string) string {
	return fmt.Sprintf("<b>Neighbourhood:</b> %s<br/>", name)
}

// labelFeatures assigns a tooltip to every feature in 'fc', in place, applying 'policy' to features
// without the label attribute. Features that are skipped are removed from the collection.
func labelFeatures(fc *geojson.FeatureCollection, opts *boundaryOptions) error {

	labeled := make([]*geojson.Feature, 0, len(fc.Features))

	for idx, f := range fc.Features {

		name, ok := labelValue(f, opts.label_attribute)

		if !ok {

			switch opts.label_policy {
			case LabelPolicySkip:
				continue
			case LabelPolicyDefault:
				name = opts.default_label
			default:
				return &MissingAttributeError{
					Attribute: opts.label_attribute,
					Index:     idx,
				}
			}
		}

		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}

		f.Properties[opts.tooltip_attribute] = Tooltip(name)
		labeled = append(labeled, f)
	}

	fc.Features = labeled
	return nil
}

// labelValue returns the string form of the 'attr' property of 'f'. A nil value counts as absent.
func labelValue(f *geojson.Feature, attr string) (string, bool) {

	v, ok := f.Properties[attr]

	if !ok || v == nil {
		return "", false
	}

	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", s), true
	}
}
