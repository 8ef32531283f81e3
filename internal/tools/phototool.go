package tools

import (
	"context"
	"fmt"
)

func (r *Registry) progressPhotosTool() Tool {
	return Tool{
		Name: "get_progress_photos",
		Description: "List uploaded progress photos with their URLs, newest " +
			"first. Use when the user asks about their photos.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleProgressPhotos,
	}
}

func (r *Registry) handleProgressPhotos(ctx context.Context, args map[string]any) string {
	if r.photos == nil || !r.photos.Configured() {
		return mustJSON(map[string]any{
			"success": true,
			"photos":  []any{},
			"count":   0,
			"note":    "photo storage is not configured",
		})
	}
	photos, err := r.photos.List(ctx)
	if err != nil {
		return failure(fmt.Sprintf("could not list photos: %v", err))
	}
	return mustJSON(map[string]any{
		"success": true,
		"photos":  photos,
		"count":   len(photos),
	})
}

func (r *Registry) uploadPhotoTool() Tool {
	return Tool{
		Name: "upload_progress_photo",
		Description: "Explain how to upload a progress photo. The assistant " +
			"cannot receive image data itself; uploads go through the " +
			"dashboard.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleUploadPhoto,
	}
}

func (r *Registry) handleUploadPhoto(ctx context.Context, args map[string]any) string {
	return mustJSON(map[string]any{
		"success": true,
		"instructions": "Photos cannot be sent through chat. Use the camera " +
			"button in the Progress Photos section of the dashboard; it " +
			"compresses the image and uploads it to storage.",
	})
}
