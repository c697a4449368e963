package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_paramsValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{
			name:   "watermark removal needs no params",
			params: WatermarkRemovalParams{},
		},
		{
			name:   "object removal with target",
			params: ObjectRemovalParams{RemoveText: "person"},
		},
		{
			name:    "object removal without target",
			params:  ObjectRemovalParams{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_paramsFields(t *testing.T) {
	assert.Empty(t, WatermarkRemovalParams{}.Fields())
	assert.Equal(t,
		map[string]interface{}{"remove_text": "car"},
		ObjectRemovalParams{RemoveText: "car"}.Fields())
}

func Test_paramsForType(t *testing.T) {
	params, err := ParamsForType("minimax_remove", "")
	require.NoError(t, err)
	assert.Equal(t, TypeWatermarkRemoval, params.Type())

	params, err = ParamsForType("video-object-removal", "person")
	require.NoError(t, err)
	assert.Equal(t, TypeObjectRemoval, params.Type())
	require.NoError(t, params.Validate())

	_, err = ParamsForType("image-upscale", "")
	require.Error(t, err)
}

func Test_validateFile(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErr     error
	}{
		{
			name:        "mp4 within limit",
			contentType: "video/mp4",
			size:        10 * 1000 * 1000,
		},
		{
			name:        "quicktime within limit",
			contentType: "video/quicktime",
			size:        199 * 1000 * 1000,
		},
		{
			name:        "non-video type",
			contentType: "image/png",
			size:        1000,
			wantErr:     &InvalidTypeError{},
		},
		{
			name:        "text file",
			contentType: "text/plain",
			size:        1000,
			wantErr:     &InvalidTypeError{},
		},
		{
			name:        "over the cap",
			contentType: "video/mp4",
			size:        MaxFileSize + 1,
			wantErr:     &TooLargeError{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.contentType, tt.size)
			switch tt.wantErr.(type) {
			case *InvalidTypeError:
				var typeErr *InvalidTypeError
				require.ErrorAs(t, err, &typeErr)
				assert.Equal(t, tt.contentType, typeErr.ContentType)
			case *TooLargeError:
				var sizeErr *TooLargeError
				require.ErrorAs(t, err, &sizeErr)
				assert.Equal(t, tt.size, sizeErr.Size)
			default:
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, ValidateFile("video/mp4", 0), "empty file is rejected")
}
