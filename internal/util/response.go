package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

func Success(message string) Envelope {
	return Envelope{"success": true, "message": message}
}
