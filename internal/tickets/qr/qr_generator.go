package qr

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/skip2/go-qrcode"

	"ms-events/internal/models"
)

// Generator renders ticket codes as scannable images. It is a pure function
// of its input: the same payload always yields the same PNG, and decoding
// the image yields the same payload back.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// Generate encodes the payload JSON into a PNG QR image.
func (g *Generator) Generate(payload models.QRPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, g.size)
}

// DataURL returns the image as a data URL for embedding directly in a
// ticket page.
func (g *Generator) DataURL(payload models.QRPayload) (string, error) {
	png, err := g.Generate(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// ParseScan interprets what a scanner submitted. Newer tickets encode the
// structured JSON payload; older ones encoded the bare code string, so
// anything that isn't valid JSON is treated as the literal code.
func ParseScan(raw string) models.QRPayload {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var payload models.QRPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Code != "" {
			return payload
		}
	}
	return models.QRPayload{Code: trimmed}
}
