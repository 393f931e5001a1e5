package protocol

import (
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct field names
const (
	FieldKey       = "key"
	FieldTitle     = "title"
	FieldSubtitle  = "subtitle"
	FieldChoices   = "choices"
	FieldAvailable = "available"
	FieldValue     = "value"
	FieldExternal  = "external"
)

// FeatureToStruct encodes a feature snapshot
func FeatureToStruct(s shared.State) *structpb.Struct {
	choices := make([]*structpb.Value, 0, len(s.Choices))
	for _, c := range s.Choices {
		choices = append(choices, structpb.NewStringValue(c))
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldKey:       structpb.NewStringValue(s.Key),
			FieldTitle:     structpb.NewStringValue(s.Title),
			FieldSubtitle:  structpb.NewStringValue(s.Subtitle),
			FieldChoices:   structpb.NewListValue(&structpb.ListValue{Values: choices}),
			FieldAvailable: structpb.NewBoolValue(s.Available),
			FieldValue:     structpb.NewStringValue(s.Value),
		},
	}
}

// StructToFeature decodes a feature snapshot
func StructToFeature(m *structpb.Struct) (shared.State, error) {
	if m == nil {
		return shared.State{}, errors.New("protocol: nil feature")
	}
	f := m.GetFields()
	s := shared.State{
		Key:       f[FieldKey].GetStringValue(),
		Title:     f[FieldTitle].GetStringValue(),
		Subtitle:  f[FieldSubtitle].GetStringValue(),
		Available: f[FieldAvailable].GetBoolValue(),
		Value:     f[FieldValue].GetStringValue(),
	}
	if s.Key == "" {
		return s, errors.New("protocol: feature without key")
	}
	for _, c := range f[FieldChoices].GetListValue().GetValues() {
		s.Choices = append(s.Choices, c.GetStringValue())
	}
	return s, nil
}

// FeaturesToList encodes a list of snapshots
func FeaturesToList(states []shared.State) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(states))
	for _, s := range states {
		values = append(values, structpb.NewStructValue(FeatureToStruct(s)))
	}
	return &structpb.ListValue{Values: values}
}

// ListToFeatures decodes a list of snapshots
func ListToFeatures(l *structpb.ListValue) ([]shared.State, error) {
	states := make([]shared.State, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		s, err := StructToFeature(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}

// NewSetRequest builds the request for Set
func NewSetRequest(key, value string) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldKey:   structpb.NewStringValue(key),
			FieldValue: structpb.NewStringValue(value),
		},
	}
}

// ParseSetRequest returns the key and value of a Set request
func ParseSetRequest(m *structpb.Struct) (key, value string, err error) {
	f := m.GetFields()
	key = f[FieldKey].GetStringValue()
	if key == "" {
		return "", "", errors.New("protocol: set request without key")
	}
	v, ok := f[FieldValue]
	if !ok {
		return "", "", errors.New("protocol: set request without value")
	}
	return key, v.GetStringValue(), nil
}

// ChangeToStruct encodes a change notification
func ChangeToStruct(key, value string, external bool) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldKey:      structpb.NewStringValue(key),
			FieldValue:    structpb.NewStringValue(value),
			FieldExternal: structpb.NewBoolValue(external),
		},
	}
}

// StructToChange decodes a change notification
func StructToChange(m *structpb.Struct) (key, value string, external bool) {
	f := m.GetFields()
	return f[FieldKey].GetStringValue(), f[FieldValue].GetStringValue(), f[FieldExternal].GetBoolValue()
}
