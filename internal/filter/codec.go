package filter

import (
	"encoding/base64"
	"errors"
	"fmt"

	"cartoonify/internal/dto"

	"gocv.io/x/gocv"
)

// ErrDecode is returned when uploaded bytes are not a decodable image.
var ErrDecode = errors.New("could not decode image")

// Decode turns encoded image bytes into a BGR frame.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: no data", ErrDecode)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrDecode
	}
	return mat, nil
}

// EncodeJPEG encodes a frame as JPEG and copies the bytes out of the native buffer.
func EncodeJPEG(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, fmt.Errorf("encode: %w", ErrEmptyFrame)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// EncodeBase64JPEG is EncodeJPEG followed by standard base64.
func EncodeBase64JPEG(m gocv.Mat) (string, error) {
	data, err := EncodeJPEG(m)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Pair filters a frame and encodes both versions for delivery to clients.
func Pair(original gocv.Mat, p Params) (dto.FramePair, error) {
	cartoon, err := Cartoonify(original, p)
	if err != nil {
		return dto.FramePair{}, err
	}
	defer cartoon.Close()

	originalB64, err := EncodeBase64JPEG(original)
	if err != nil {
		return dto.FramePair{}, err
	}
	cartoonB64, err := EncodeBase64JPEG(cartoon)
	if err != nil {
		return dto.FramePair{}, err
	}

	return dto.FramePair{Original: originalB64, Cartoon: cartoonB64}, nil
}
