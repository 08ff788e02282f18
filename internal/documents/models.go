package documents

import (
	"errors"
	"io"
	"time"
)

// Key names one of the ownership documents a landlord must provide.
type Key string

const (
	KeySPAAgreement  Key = "spaAgreement"
	KeyTitleDeed     Key = "titleDeed"
	KeyUtilityBill   Key = "utilityBill"
	KeyQuitRent      Key = "quitRent"
	KeyAssessmentTax Key = "assessmentTax"
)

var keys = []Key{KeySPAAgreement, KeyTitleDeed, KeyUtilityBill, KeyQuitRent, KeyAssessmentTax}

var labels = map[Key]string{
	KeySPAAgreement:  "S&P Agreement",
	KeyTitleDeed:     "Title Deed",
	KeyUtilityBill:   "Utility Bill",
	KeyQuitRent:      "Quit Rent Receipt",
	KeyAssessmentTax: "Assessment Tax Receipt",
}

// Keys returns the required document keys in display order.
func Keys() []Key {
	return append([]Key(nil), keys...)
}

func (k Key) Valid() bool {
	_, ok := labels[k]
	return ok
}

func (k Key) Label() string {
	return labels[k]
}

func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Valid() {
		return "", ErrUnknownKey
	}
	return k, nil
}

var (
	ErrUnknownKey = errors.New("unknown document key")
	ErrFileType   = errors.New("Only PDF, JPG, or PNG files are allowed.")
	ErrFileSize   = errors.New("File size must be 10MB or less.")
	ErrEmptyFile  = errors.New("File is empty.")
	ErrReference  = errors.New("document reference does not belong to this property")
)

// File is one selected file as seen by the uploader.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload is the stored result of a single slot upload.
type Upload struct {
	Key         Key       `json:"key"`
	Reference   string    `json:"reference"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
