package ollama

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Short answers stop at the first paragraph break or role marker; longer
// step-by-step answers only stop at code fences.
func newChatRequest(model, message string, stepByStep bool) chatRequest {
	opts := chatOptions{
		Temperature: 0,
		TopP:        0.9,
		NumPredict:  80,
		Stop:        []string{"```", "\n\n", "User:", "Kullanıcı:", "System:"},
	}
	if stepByStep {
		opts.NumPredict = 220
		opts.Stop = []string{"```"}
	}

	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Stream:  false,
		Options: opts,
	}
}
