package protocol

import (
	"testing"

	"github.com/gramlinux/GramManager/system/shared"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestFeatureStructRoundTrip(t *testing.T) {
	state := shared.State{
		Key:       "fan_mode",
		Title:     "Fan Mode",
		Subtitle:  "Cooling profile",
		Choices:   []string{"silent", "optimal", "performance"},
		Available: true,
		Value:     "optimal",
	}

	decoded, err := ListToFeatures(FeaturesToList([]shared.State{state}))
	require.NoError(t, err)
	require.Equal(t, []shared.State{state}, decoded)
}

func TestStructToFeatureRequiresKey(t *testing.T) {
	_, err := StructToFeature(&structpb.Struct{})
	require.Error(t, err)
	_, err = StructToFeature(nil)
	require.Error(t, err)
}

func TestSetRequest(t *testing.T) {
	key, value, err := ParseSetRequest(NewSetRequest("fn_lock", "off"))
	require.NoError(t, err)
	require.Equal(t, "fn_lock", key)
	require.Equal(t, "off", value)

	_, _, err = ParseSetRequest(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldKey: structpb.NewStringValue("fn_lock"),
		},
	})
	require.Error(t, err)
}
