package camera

import (
	"testing"

	"github.com/camstack/camd/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaultSource(t *testing.T) {
	Init()

	f, err := Source().Acquire()
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, frame.EncodingJPEG, f.Encoding())
	assert.Equal(t, []byte{0xFF, 0xD8}, f.Bytes()[:2])
}

func TestApplyEffects(t *testing.T) {
	Init()

	require.NoError(t, PTZ().ApplyJSON([]byte(`{"led":true}`)))
	ApplyEffects()
	assert.True(t, lastLed)

	require.NoError(t, PTZ().ApplyJSON([]byte(`{"led":false}`)))
	ApplyEffects()
	assert.False(t, lastLed)
}
