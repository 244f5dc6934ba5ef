package response

import (
	"net/http"

	"seatline/internal/shared/apperror"
	"seatline/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		OK:         status == "success",
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondOK writes a success envelope with HTTP 200.
func RespondOK(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, "success", http.StatusOK, message, data, nil)
}

// RespondError maps err to its status and machine-readable code. Internal
// errors are logged with their cause and returned opaquely.
func RespondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	code := apperror.StatusCode(appErr)
	if appErr.Kind == apperror.KindInternal {
		logger.GetDefault().LogHTTPError(c, err, code)
	}
	c.JSON(code, StandardApiResponse{
		OK:         false,
		Status:     "error",
		StatusCode: code,
		Message:    apperror.PublicMessage(appErr),
		Error:      appErr.Code,
	})
}
