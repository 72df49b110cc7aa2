package endpoint

import (
	"errors"
	"mime/multipart"

	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

// uploadImageOrRespond pushes a multipart file to the image host and returns its URL.
func uploadImageOrRespond(c *gin.Context, fh *multipart.FileHeader, folder string) (string, bool) {
	p, ok := getProvidersOrRespond(c)
	if !ok {
		return "", false
	}
	if p.Images == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Image upload is not available", Err: util.ErrImageHostDisabled})
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Unable to read image", Err: err})
		return "", false
	}
	defer f.Close()

	url, err := p.Images.Upload(c.Request.Context(), f, folder)
	if err != nil {
		if errors.Is(err, util.ErrImageHostDisabled) {
			util.CallServerError(c, util.APIErrorParams{Msg: "Image upload is not available", Err: err})
			return "", false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to upload image", Err: err})
		return "", false
	}
	return url, true
}
