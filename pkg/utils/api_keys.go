package utils

import (
	"crypto/sha256"
	"encoding/hex"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const apiKeyLength = 32

func GenerateApiKey() (string, error) {
	id, err := gonanoid.New(apiKeyLength)
	if err != nil {
		return "", err
	}
	return "pp_" + id, nil
}

func HashApiKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
