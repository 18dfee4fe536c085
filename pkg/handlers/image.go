package handlers

import (
	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/imgrepo"
)

// ImageHandler serves the image-repository endpoint. It rejects anything
// but GET with 400, and implements the conditional-GET-by-serial convention,
// extended to also emit an ETag header.
type ImageHandler struct {
	repo imgrepo.Repository
}

// NewImageHandler returns a factory producing an ImageHandler backed by repo.
func NewImageHandler(repo imgrepo.Repository) func() *ImageHandler {
	return func() *ImageHandler { return &ImageHandler{repo: repo} }
}

func (h *ImageHandler) AllowedMethod(method string) bool {
	return method == "GET"
}

func (h *ImageHandler) ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response {
	inSerial:= conditionalSerial(req)
	userToken:= req.Query.GetDefault("token", "")

	result, err:= h.repo.ReadImage(remainder, inSerial, userToken)
	if err != nil {
		resp:= httpmsg.NewResponse().WithStatus(404).WithBody([]byte("404 not found"))
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return resp
	}
	if result.Unchanged {
		tag:= imgrepo.SerialTag(result.NewSerial)
		resp:= httpmsg.NewResponse().WithStatus(304)
		resp.Header.Set("Last-Modified", tag)
		resp.Header.Set("ETag", tag)
		return resp
	}

	contentType:= "image/jpeg"
	if result.IsPNG {
		contentType = "image/png"
	}
	tag:= imgrepo.SerialTag(result.NewSerial)
	resp:= httpmsg.NewResponse().WithStatus(200).WithBody(result.Buffer)
	resp.Header.Set("Content-Type", contentType)
	resp.Header.Set("Last-Modified", tag)
	resp.Header.Set("ETag", tag)
	resp.Header.Set("Cache-Control", "no-cache")
	return resp
}
