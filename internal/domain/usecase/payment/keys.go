package payment

// Marker key derivation, one namespace per operation type. The key is the
// business identity the idempotency guard protects: two requests with the same
// key are the same business action.

func authorizeMarkerKey(clientReferenceNumber, groupID string) string {
	return "authorize:" + clientReferenceNumber + groupID
}

func captureMarkerKey(authorizePaymentID string) string {
	return "capture:" + authorizePaymentID
}

func voidMarkerKey(authorizePaymentID string) string {
	return "void:" + authorizePaymentID
}

func refundMarkerKey(clientReferenceNumber string) string {
	return "refund:" + clientReferenceNumber
}
