package session

// OutboundMessage is any server-to-client JSON message (spec.md §6.1).
// All fields are tagged `omitempty` except Type so a single struct can
// represent every message shape without per-kind wrapper types.
type OutboundMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status,omitempty"`
	TranslationID int64  `json:"translation_id,omitempty"`
	Text          string `json:"text,omitempty"`
	Audio         string `json:"audio,omitempty"`
	Message       string `json:"message,omitempty"`
}

func statusProcessing(translationID int64) OutboundMessage {
	return OutboundMessage{Type: "status", Status: "processing", TranslationID: translationID}
}

func statusStopped() OutboundMessage {
	return OutboundMessage{Type: "status", Status: "stopped"}
}

func partialResult(text string) OutboundMessage {
	return OutboundMessage{Type: "partial_result", Text: text}
}

func finalResult(text, audioBase64 string) OutboundMessage {
	return OutboundMessage{Type: "final_result", Text: text, Audio: audioBase64}
}

func warningMessage(message string) OutboundMessage {
	return OutboundMessage{Type: "warning", Message: message}
}

func errorMessage(message string) OutboundMessage {
	return OutboundMessage{Type: "error", Message: message}
}
