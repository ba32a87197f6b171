package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBase() JobBase {
	return JobBase{UserID: 7, GenerationID: "gen-1", ChatID: 100, MessageID: 55, Language: "en"}
}

func TestRestorationJobValidation(t *testing.T) {
	job := &RestorationJob{JobBase: validBase(), FileID: "f1"}
	assert.NoError(t, job.Validate())

	job = &RestorationJob{JobBase: validBase()}
	assert.Error(t, job.Validate(), "needs a file or an existing source path")

	job = &RestorationJob{JobBase: validBase(), OriginalPhotoPath: "/storage/x.jpg"}
	assert.NoError(t, job.Validate(), "a retained source replaces the file id")

	job = &RestorationJob{JobBase: validBase(), FileID: "f1", RetryWithoutCreases: true}
	assert.Error(t, job.Validate(), "a retry must carry the already-downloaded source")
}

func TestEffectJobValidationDefaultsResolution(t *testing.T) {
	job := &EffectJob{JobBase: validBase(), Effect: "cartoon", FileIDs: []string{"f1"}}
	require.NoError(t, job.Validate())
	assert.Equal(t, ResolutionSquare, job.Resolution)

	job = &EffectJob{JobBase: validBase(), Effect: "cartoon", FileIDs: []string{"f1"}, Resolution: "PANORAMA"}
	assert.Error(t, job.Validate())

	job = &EffectJob{JobBase: validBase(), Effect: "logoEffect", Prompt: "a fox logo"}
	assert.NoError(t, job.Validate(), "prompt-only effects need no source photos")
}

func TestVideoJobValidation(t *testing.T) {
	job := &VideoJob{JobBase: validBase(), FileID: "f1", Effect: "animate"}
	assert.NoError(t, job.Validate())

	job = &VideoJob{JobBase: validBase(), Effect: "animate"}
	assert.Error(t, job.Validate())

	job = &VideoJob{JobBase: validBase(), FileID: "f1"}
	assert.Error(t, job.Validate(), "effect is required")
}

func TestEncodeDecodeJobRoundTrip(t *testing.T) {
	original := &RestorationJob{JobBase: validBase(), FileID: "f1", HasCreases: true}
	data, err := EncodeJob(original)
	require.NoError(t, err)

	decoded, err := DecodeJob(data)
	require.NoError(t, err)
	job, ok := decoded.(*RestorationJob)
	require.True(t, ok)
	assert.Equal(t, original, job)
}

func TestEncodeJobRejectsInvalidPayloads(t *testing.T) {
	_, err := EncodeJob(&UpgradeJob{JobBase: validBase()})
	assert.Error(t, err, "imagePath is required")
}

func TestDecodeJobRejectsUnknownKind(t *testing.T) {
	_, err := DecodeJob([]byte(`{"kind":"hologram","payload":{}}`))
	assert.Error(t, err)

	_, err = DecodeJob([]byte(`not json`))
	assert.Error(t, err)
}
