package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// WeatherReport is the canned forecast returned for every city.
type WeatherReport struct {
	City        string `json:"city"`
	Conditions  string `json:"conditions"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
}

// weatherTool always reports sunny weather. It exists to exercise the
// tool-calling path end to end without an external API.
type weatherTool struct{}

// NewWeatherTool returns the get_weather tool.
func NewWeatherTool() Tool {
	return &weatherTool{}
}

func (t *weatherTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "get_weather",
		Description: "Returns the current weather for a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "Name of the city to get the weather for",
				},
			},
			"required": []string{"city"},
		},
	}
}

func (t *weatherTool) GetName() string { return "get_weather" }

func (t *weatherTool) GetDescription() string {
	return "Returns the current weather for a city."
}

func (t *weatherTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return NewToolResultError("get_weather", `missing required argument "city"`), nil
	}

	report := WeatherReport{
		City:        city,
		Conditions:  "Sunny",
		Temperature: "25°C",
		Description: fmt.Sprintf("It's a beautiful day in %s! The sun is shining and the temperature is a perfect 25°C.", city),
	}

	Emit(ctx, "weather_lookup", map[string]any{"city": city})

	payload, err := json.Marshal(report)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to encode weather report: %w", err)
	}
	return NewToolResult("get_weather", string(payload)), nil
}
