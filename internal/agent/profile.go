package agent

// Profile defines a named participant: its role prompt and the tools it may
// call.
type Profile struct {
	Name             string
	SystemPrompt     string
	Tools            []string
	ReflectOnToolUse bool
	MaxToolRounds    int
}
