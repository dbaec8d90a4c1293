package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"haru/internal/weather"
)

func newWeatherCmd(app *App) *cobra.Command {
	var (
		lat, lon float64
		place    string
	)

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Show the forecast for the configured place",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") {
				lat = app.cfg.Weather.Latitude
			}
			if !cmd.Flags().Changed("lon") {
				lon = app.cfg.Weather.Longitude
			}
			if place == "" {
				place = app.cfg.Weather.Place
			}

			fc, err := weather.New().Forecast(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderForecast(place, fc))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (default: from config)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude (default: from config)")
	cmd.Flags().StringVar(&place, "place", "", "Display name for the location")
	return cmd
}

func renderForecast(place string, fc *weather.Forecast) string {
	title := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", title.Render(place), muted.Render(fc.Timezone))
	fmt.Fprintf(&b, "%s, %.1f°C (feels like %.1f°C)\n",
		weather.Describe(fc.Current.WeatherCode), fc.Current.Temperature, fc.Current.Apparent)
	fmt.Fprintf(&b, "humidity %.0f%%, wind %.1f km/h\n\n", fc.Current.Humidity, fc.Current.WindSpeed)

	for i := range fc.Daily.Time {
		if i >= len(fc.Daily.WeatherCode) || i >= len(fc.Daily.TempMax) || i >= len(fc.Daily.TempMin) {
			break
		}
		fmt.Fprintf(&b, "%s  %5.1f° / %5.1f°  %s\n",
			fc.Daily.Time[i], fc.Daily.TempMin[i], fc.Daily.TempMax[i],
			weather.Describe(fc.Daily.WeatherCode[i]))
	}
	return b.String()
}
