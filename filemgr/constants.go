package filemgr

import "errors"

type PictureType string

const (
	PicPhoto PictureType = "photo"
	PicThumb PictureType = "thumb"
)

const (
	DefaultMaxSize = 10 << 20
	thumbWidth     = 200
)

var (
	AllowedExtensions = map[PictureType][]string{
		PicPhoto: {".jpg", ".jpeg", ".png", ".gif", ".webp"},
		PicThumb: {".jpg"},
	}

	AllowedMIMEs = map[PictureType][]string{
		PicPhoto: {"image/jpeg", "image/png", "image/gif", "image/webp"},
		PicThumb: {"image/jpeg"},
	}

	PictureSubfolders = map[PictureType]string{
		PicPhoto: "photo",
		PicThumb: "thumb",
	}

	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrNotAnImage       = errors.New("file is not a decodable image")
)
