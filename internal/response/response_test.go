package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vidset/pkg/errors"
)

func TestFromError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Response
	}{
		{name: "nil", err: nil, want: Response{Msg: "成功 Success"}},
		{
			name: "wrapped app error",
			err:  fmt.Errorf("job: %w", apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "文件不存在 File not found", "/data", errors.New("stat"))),
			want: Response{Error: apperrors.CodeFileNotFound, Msg: "文件不存在 File not found", Detail: "/data"},
		},
		{name: "plain error", err: errors.New("boom"), want: Response{Error: apperrors.CodeUnknown, Msg: "boom"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromError(tc.err))
		})
	}
}

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"count": 2})

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["error"])
	assert.EqualValues(t, 2, body["data"].(map[string]any)["count"])
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Abort(c, http.StatusNotFound, apperrors.ErrFileNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, apperrors.CodeFileNotFound, body.Error)
	assert.Equal(t, "文件不存在 File not found", body.Msg)
}
