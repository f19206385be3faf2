package correo

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtraerTextoPdf pulls the plain text out of a PDF attachment. The parser
// panics on some corrupt files, so the recover keeps one bad receipt from
// taking down the reader cycle.
func ExtraerTextoPdf(datos []byte) (texto string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf corrupto: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(datos), int64(len(datos)))
	if err != nil {
		return "", fmt.Errorf("abriendo pdf: %w", err)
	}

	plano, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extrayendo texto: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plano); err != nil {
		return "", fmt.Errorf("leyendo texto: %w", err)
	}
	return buf.String(), nil
}
