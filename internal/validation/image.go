package validation

import "strings"

// ValidateImage validates the avatar URL. Image is optional; when present it
// must point at a png or jpg.
func ValidateImage(image string) error {
	if image == "" {
		return nil
	}
	lower := strings.ToLower(image)
	if !strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, ".jpg") {
		return fieldError("image", "must end in .png or .jpg")
	}
	return nil
}
