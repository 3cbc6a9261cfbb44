package shazam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoSigner - генератор сигнатур не настроен.
var ErrNoSigner = errors.New("shazam: signature generator is not configured")

// Signature - аудиоотпечаток в формате Shazam.
type Signature struct {
	URI      string `json:"uri"`
	SampleMs int    `json:"samplems"`
}

// Signer строит сигнатуру по аудиоданным. Сам алгоритм отпечатка внешний.
type Signer interface {
	Sign(ctx context.Context, audio []byte) (Signature, error)
}

// ExecSigner запускает внешнюю утилиту: путь к аудиофайлу передается последним аргументом,
// на stdout ожидается JSON {"uri": "...", "samplems": N}.
type ExecSigner struct {
	Command []string
	TempDir string
}

func (s *ExecSigner) Sign(ctx context.Context, audio []byte) (Signature, error) {
	if len(s.Command) == 0 {
		return Signature{}, ErrNoSigner
	}
	f, err := os.CreateTemp(s.TempDir, "shazamio-*.audio")
	if err != nil {
		return Signature{}, fmt.Errorf("временный файл: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(audio); err != nil {
		f.Close()
		return Signature{}, fmt.Errorf("запись временного файла: %w", err)
	}
	if err := f.Close(); err != nil {
		return Signature{}, err
	}

	args := append(append([]string{}, s.Command[1:]...), f.Name())
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Signature{}, fmt.Errorf("генератор сигнатур %s: %w: %s", s.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	var sig Signature
	if err := json.Unmarshal(out, &sig); err != nil {
		return Signature{}, fmt.Errorf("разбор сигнатуры: %w", err)
	}
	if strings.TrimSpace(sig.URI) == "" {
		return Signature{}, fmt.Errorf("генератор сигнатур вернул пустой отпечаток")
	}
	return sig, nil
}

type recognizeRequest struct {
	Geolocation struct {
		Altitude  float64 `json:"altitude"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geolocation"`
	Signature struct {
		SampleMs  int    `json:"samplems"`
		Timestamp int64  `json:"timestamp"`
		URI       string `json:"uri"`
	} `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	Timezone  string `json:"timezone"`
}

// Recognize распознает трек по аудиоданным.
func (c *Client) Recognize(ctx context.Context, audio []byte) (json.RawMessage, error) {
	if len(audio) == 0 {
		return nil, errors.New("shazam: empty audio")
	}
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	sig, err := c.signer.Sign(ctx, audio)
	if err != nil {
		return nil, err
	}
	return c.RecognizeSignature(ctx, sig)
}

// RecognizeSignature отправляет готовую сигнатуру.
func (c *Client) RecognizeSignature(ctx context.Context, sig Signature) (json.RawMessage, error) {
	now := time.Now().UnixMilli()
	var body recognizeRequest
	body.Signature.URI = sig.URI
	body.Signature.SampleMs = sig.SampleMs
	body.Signature.Timestamp = now
	body.Timestamp = now
	body.Timezone = c.timezone

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/discovery/v5/%s/%s/android/-/tag/%s/%s?sync=true&webv3=true&sampling=true&connected=&shazamapiversion=v3&sharehub=true&hubv5minorversion=v5.1&hidelb=true&video=v3",
		c.endpoints.AMP, c.lang(), c.country(),
		strings.ToUpper(uuid.NewString()), strings.ToUpper(uuid.NewString()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header = c.header()
	req.Header.Set("Content-Type", "application/json")
	resp, respBody, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shazam: recognize: %w", err)
	}
	return checkResponse(resp, u, respBody)
}
