package menu

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256 // px

// MenuURL is the public page a table's code opens.
func MenuURL(frontendURL string, tableNumber int, menuID uint) string {
	return fmt.Sprintf("%s/cardapio?mesa=%d&cardapio=%d", strings.TrimRight(frontendURL, "/"), tableNumber, menuID)
}

// EncodeQR renders content as an embeddable PNG data URL.
func EncodeQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Low, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// TableQR encodes the menu link for a table.
func TableQR(frontendURL string, tableNumber int, menuID uint) (string, error) {
	return EncodeQR(MenuURL(frontendURL, tableNumber, menuID))
}
