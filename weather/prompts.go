package weather

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaharia-lab/weather-mcp-server/mcp"
)

const reportTemplate = `Please provide a detailed weather report for %s based on the following data:

%s

Include:
- Current temperature and conditions
- Humidity and wind information
- Any recommendations for outdoor activities
- Comparison to seasonal averages if possible
`

const comparisonTemplate = `Compare the weather conditions between %s and %s:

%s Weather:
%s

%s Weather:
%s

Please provide a comparison highlighting:
- Temperature differences
- Weather conditions
- Which location might be better for outdoor activities
- Any notable differences in humidity or wind
`

// Prompts returns the weather prompt definitions backed by store. Both
// prompts render dynamically so the current record can be embedded in
// the message text.
func Prompts(store *Store) []mcp.Prompt {
	return []mcp.Prompt{
		weatherReportPrompt(store),
		weatherComparisonPrompt(store),
	}
}

func weatherReportPrompt(store *Store) mcp.Prompt {
	return mcp.Prompt{
		Name:        "weather_report",
		Description: "Generate a weather report for a location",
		Arguments: []mcp.PromptArgument{
			{
				Name:        "location",
				Description: "The location to generate a weather report for",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params mcp.GetPromptParams) (mcp.PromptGetResponse, error) {
			var args struct {
				Location string `json:"location"`
			}
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return mcp.PromptGetResponse{}, fmt.Errorf("invalid arguments: %w", err)
			}

			text := fmt.Sprintf(reportTemplate, args.Location, renderRecord(store, args.Location))
			return mcp.PromptGetResponse{
				Description: fmt.Sprintf("Weather report for %s", args.Location),
				Messages:    userMessage(text),
			}, nil
		},
	}
}

func weatherComparisonPrompt(store *Store) mcp.Prompt {
	return mcp.Prompt{
		Name:        "weather_comparison",
		Description: "Compare weather between two locations",
		Arguments: []mcp.PromptArgument{
			{
				Name:        "location1",
				Description: "First location to compare",
				Required:    true,
			},
			{
				Name:        "location2",
				Description: "Second location to compare",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params mcp.GetPromptParams) (mcp.PromptGetResponse, error) {
			var args struct {
				Location1 string `json:"location1"`
				Location2 string `json:"location2"`
			}
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return mcp.PromptGetResponse{}, fmt.Errorf("invalid arguments: %w", err)
			}

			text := fmt.Sprintf(comparisonTemplate,
				args.Location1, args.Location2,
				args.Location1, renderRecord(store, args.Location1),
				args.Location2, renderRecord(store, args.Location2),
			)
			return mcp.PromptGetResponse{
				Description: fmt.Sprintf("Weather comparison between %s and %s", args.Location1, args.Location2),
				Messages:    userMessage(text),
			}, nil
		},
	}
}

// renderRecord returns the indented record JSON, or a readable error
// line when the location is unknown. Prompt rendering stays usable for
// any location string.
func renderRecord(store *Store, location string) string {
	data, err := store.Lookup(location)
	if err != nil {
		return fmt.Sprintf("No weather data available for %s: %v", location, err)
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("No weather data available for %s: %v", location, err)
	}
	return string(body)
}

func userMessage(text string) []mcp.PromptMessage {
	return []mcp.PromptMessage{
		{
			Role: "user",
			Content: mcp.PromptContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
