package fileholder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	filenameRegex  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	extensionRegex = regexp.MustCompile(`^[A-Za-z0-9]*$`)
	pathRegex      = regexp.MustCompile(`^/[A-Za-z0-9._/-]*/$`)
)

// newValidator builds a validator.Validate registered with the custom
// tags used by metastore.FileMeta's struct tags.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("filename_charset", func(fl validator.FieldLevel) bool {
		return filenameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("extension_charset", func(fl validator.FieldLevel) bool {
		return extensionRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("path_format", func(fl validator.FieldLevel) bool {
		return pathRegex.MatchString(fl.Field().String())
	})
	return v
}

// ValidFilename reports whether filename matches the allowed charset.
func ValidFilename(filename string) bool {
	return len(filename) >= 1 && len(filename) <= 255 && filenameRegex.MatchString(filename)
}

// ValidExtension reports whether extension matches the allowed charset.
func ValidExtension(extension string) bool {
	return len(extension) <= 10 && extensionRegex.MatchString(extension)
}

// ValidPath reports whether path matches the required virtual-path
// format: starts and ends with '/', 1-1024 characters.
func ValidPath(path string) bool {
	return len(path) >= 1 && len(path) <= 1024 && pathRegex.MatchString(path)
}
