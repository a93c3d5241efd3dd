// Package response writes the JSON envelope every API endpoint answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "vidset/pkg/errors"
)

const successMsg = "成功 Success"

// Response is the envelope. Error is 0 on success, otherwise an AppError code.
type Response struct {
	Error  int32  `json:"error"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

// Success answers 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Msg: successMsg, Data: data})
}

// FromError builds the envelope for err; errors that are not AppErrors get CodeUnknown.
func FromError(err error) Response {
	if err == nil {
		return Response{Msg: successMsg}
	}
	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: apperrors.GetDetail(err),
	}
}

// ErrorResponse answers 200 with the error code in the body; API clients branch on
// the code, not the HTTP status.
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusOK, FromError(err))
}

// Abort answers with an explicit HTTP status, for endpoints such as file download
// that plain HTTP clients consume.
func Abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, FromError(err))
}
