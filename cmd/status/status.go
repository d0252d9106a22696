package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/denysvitali/autowaybler/cmd/root"
	"github.com/denysvitali/autowaybler/waybler"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1).
			MarginBottom(1)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	chargingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	availableStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	cheapestStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))
)

// Sparkline characters (from lowest to highest)
var sparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stations and spot prices",
	Long: `Connect to the Waybler feed once, print the state of every station in your
charge zones and the spot prices of the look-ahead window, then disconnect.`,
	Example: `  # Show stations and prices
  autowaybler status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := root.NewClient()
		if err != nil {
			return err
		}
		defer client.Disconnect()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		zones := client.Zones()
		if len(zones) == 0 {
			fmt.Println("No charge zones found.")
			return nil
		}

		cfg := root.GetConfig()
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("STATIONS"))
		fmt.Println(renderStations(zones))
		fmt.Println()
		fmt.Println(titleStyle.Render(fmt.Sprintf("PRICES (NEXT %vH)", cfg.LookAheadHours)))
		fmt.Println(renderPrices(zones, client.Now(), cfg.LookAhead(), loc))
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(StatusCmd)
}

func renderStations(zones []waybler.ChargeZone) string {
	var rows [][]string
	for _, zone := range zones {
		for _, group := range zone.StationGroups {
			for _, st := range group.Stations {
				rows = append(rows, []string{
					zone.Name,
					group.Name,
					fmt.Sprintf("%d", st.StationID),
					st.Name,
					getStyledState(st.State),
				})
			}
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers("ZONE", "GROUP", "ID", "NAME", "STATE").
		StyleFunc(func(row, col int) lipgloss.Style {
			baseStyle := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return baseStyle.Bold(true)
			}
			if col >= 2 {
				return baseStyle.AlignHorizontal(lipgloss.Center)
			}
			return baseStyle
		}).
		Rows(rows...)

	return t.String()
}

// renderPrices lists the entries inside the window, cheapest one highlighted.
func renderPrices(zones []waybler.ChargeZone, now time.Time, window time.Duration, loc *time.Location) string {
	snapshot := waybler.NewSnapshot()
	var entries []waybler.PriceListEntry
	for _, zone := range zones {
		snapshot.Put(zone)
		for _, e := range zone.PriceList {
			if e.At.Before(now) || e.At.After(now.Add(window)) {
				continue
			}
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return dimStyle.Render("No price data in the look-ahead window.")
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})

	lowest := snapshot.LowestPrice(now, window)

	var rows [][]string
	values := make([]float64, len(entries))
	for i, e := range entries {
		values[i] = e.ConsumptionFee.Total
		marker := ""
		if lowest != nil && e.At.Equal(lowest.At) && e.ConsumptionFee == lowest.ConsumptionFee {
			marker = cheapestStyle.Render("◀ lowest")
		}
		rows = append(rows, []string{
			e.At.In(loc).Format("Mon 15:04"),
			fmt.Sprintf("%.3f", e.ConsumptionFee.Value),
			fmt.Sprintf("%.3f", e.ConsumptionFee.Total),
			e.ConsumptionFee.Currency,
			marker,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers("AT", "EXCL. VAT", "TOTAL", "CURRENCY", "").
		StyleFunc(func(row, col int) lipgloss.Style {
			baseStyle := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return baseStyle.Bold(true)
			}
			if col == 1 || col == 2 {
				return baseStyle.AlignHorizontal(lipgloss.Right)
			}
			return baseStyle
		}).
		Rows(rows...)

	var sb strings.Builder
	sb.WriteString(t.String())
	sb.WriteString("\n")
	sb.WriteString(sparklineStyle.Render(generateSparkline(values)))
	return sb.String()
}

func generateSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	// Handle case where all values are the same
	valueRange := maxVal - minVal
	if valueRange == 0 {
		valueRange = 1
	}

	var sb strings.Builder
	for _, v := range values {
		normalized := (v - minVal) / valueRange
		index := int(normalized * float64(len(sparklineChars)-1))
		if index >= len(sparklineChars) {
			index = len(sparklineChars) - 1
		}
		if index < 0 {
			index = 0
		}
		sb.WriteRune(sparklineChars[index])
	}

	return sb.String()
}

func getStyledState(state waybler.StationState) string {
	switch state {
	case waybler.StationStateBusy:
		return chargingStyle.Render("⚡ Charging")
	case waybler.StationStateEvConnected:
		return warningStyle.Render("🔌 Connected")
	case waybler.StationStateOk:
		return availableStyle.Render("✓ Available")
	case waybler.StationStateUnknown, "":
		return dimStyle.Render("? Unknown")
	default:
		return string(state)
	}
}
