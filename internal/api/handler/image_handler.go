package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
)

// ImageReader opens committed images by their assigned name.
type ImageReader interface {
	Open(name string) (afero.File, os.FileInfo, error)
}

// ImageHandler serves files from the media directory.
type ImageHandler struct {
	images ImageReader
}

func NewImageHandler(images ImageReader) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve handles GET /images/:filename.
//
// @Summary      Download a listing image
// @Tags         images
// @Produce      octet-stream
// @Param        filename  path  string  true  "Assigned image name"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /images/{filename} [get]
func (h *ImageHandler) Serve(c echo.Context) error {
	f, info, err := h.images.Open(c.Param("filename"))
	if err != nil {
		return err
	}
	defer f.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), f)
	return nil
}
