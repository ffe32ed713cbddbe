package weather

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaharia-lab/weather-mcp-server/mcp"
)

// Tools returns the weather tool definitions backed by store.
func Tools(store *Store) []mcp.Tool {
	return []mcp.Tool{
		getWeatherTool(store),
		getWeatherForecastTool(store),
	}
}

func getWeatherTool(store *Store) mcp.Tool {
	return mcp.Tool{
		Name:        "get_weather",
		Description: "Get current weather information for a specified location",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {
					"type": "string",
					"description": "The city or location to get weather for"
				}
			},
			"required": ["location"]
		}`),
		Handler: func(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
			var input struct {
				Location string `json:"location"`
			}
			if err := json.Unmarshal(params.Arguments, &input); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("invalid arguments: %w", err)
			}

			data, err := store.Lookup(input.Location)
			if err != nil {
				return errorResult(fmt.Sprintf("Error getting weather for %s: %v", input.Location, err)), nil
			}

			body, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("failed to marshal weather data: %w", err)
			}

			return textResult(string(body)), nil
		},
	}
}

func getWeatherForecastTool(store *Store) mcp.Tool {
	return mcp.Tool{
		Name:        "get_weather_forecast",
		Description: "Get weather forecast for a specified location. Days outside 1-7 are clamped to the nearest bound.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {
					"type": "string",
					"description": "The city or location to get forecast for"
				},
				"days": {
					"type": "integer",
					"description": "Number of days to forecast (1-7)",
					"default": 3
				}
			},
			"required": ["location"]
		}`),
		Handler: func(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
			var input struct {
				Location string `json:"location"`
				Days     *int   `json:"days"`
			}
			if err := json.Unmarshal(params.Arguments, &input); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("invalid arguments: %w", err)
			}

			days := DefaultForecastDays
			if input.Days != nil {
				days = *input.Days
			}

			forecast, err := store.Forecast(input.Location, days)
			if err != nil {
				return errorResult(fmt.Sprintf("Error getting forecast for %s: %v", input.Location, err)), nil
			}

			body, err := json.MarshalIndent(struct {
				Location     string        `json:"location"`
				ForecastDays int           `json:"forecast_days"`
				Forecast     []ForecastDay `json:"forecast"`
			}{
				Location:     input.Location,
				ForecastDays: len(forecast),
				Forecast:     forecast,
			}, "", "  ")
			if err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("failed to marshal forecast: %w", err)
			}

			return textResult(string(body)), nil
		},
	}
}

func textResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content: []mcp.ToolResultContent{{Type: "text", Text: text}},
	}
}

func errorResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{
		IsError: true,
		Content: []mcp.ToolResultContent{{Type: "text", Text: text}},
	}
}
