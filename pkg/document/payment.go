package document

import "strings"

var paymentLabels = map[string]string{
	"yape":          "Yape",
	"plin":          "Plin",
	"efectivo":      "Efectivo",
	"contraentrega": "Contra entrega",
	"vale":          "Vale",
	"suscripcion":   "Suscripción",
	"transferencia": "Transferencia bancaria",
}

// PaymentLabel maps a payment method code to its display label. Codes are
// matched case-insensitively; unknown codes come back unchanged.
func PaymentLabel(code string) string {
	if label, ok := paymentLabels[strings.ToLower(strings.TrimSpace(code))]; ok {
		return label
	}
	return code
}
