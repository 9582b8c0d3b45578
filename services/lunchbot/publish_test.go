package lunchbot

import (
	"context"
	"strings"
	"testing"

	"lunchbot/lib/menu"
	"lunchbot/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func testReport() Report {
	pasta := dish("Pasta | Pesto", "DESY Canteen")
	pasta.ImageURL = "https://cdn.test/pasta.png"
	pasta.GenerationTag = TagReused

	curry := dish("Curry", "Cafe CFEL")
	curry.Diet = menu.DietUnknown
	curry.Price = menu.NoPrice
	curry.ImageURL = DefaultPlaceholderURL
	curry.GenerationTag = TagFallback

	return Report{
		Prefix: "Lunch today:",
		Suffix: "Enjoy!",
		Dishes: []menu.Dish{pasta, curry},
		Sources: map[string]Source{
			"DESY Canteen": {URL: "https://desy.test/menu", Emoji: ":alsterfood:"},
			"Cafe CFEL":    {URL: "https://cfel.test/menu", Emoji: ":cfel:"},
		},
	}
}

func TestRenderReport(t *testing.T) {
	message := RenderReport(testReport())

	require.True(t, strings.HasPrefix(message, "Lunch today:\n| "), message)
	require.True(t, strings.HasSuffix(message, "|\n\n\nEnjoy!"), message)

	require.Contains(t, message, "Pasta - Pesto")
	require.NotContains(t, message, "Pasta | Pesto")
	require.Contains(t, message, "4,20 €")
	require.Contains(t, message, "vegetarian")
	require.Contains(t, message, "**[DESY Canteen](https://desy.test/menu)** :alsterfood:")
	require.Contains(t, message, "**[Cafe CFEL](https://cfel.test/menu)** :cfel:")
	require.Contains(t, message, "![preview reused](https://cdn.test/pasta.png =200)")
	require.Contains(t, message, "![preview fallback]("+DefaultPlaceholderURL+" =200)")

	lines := strings.Split(RenderTable(testReport()), "\n")
	// header, separator, price, diet, canteen, image
	require.Len(t, lines, 6)
	require.Contains(t, lines[2], "4,20 €")
	require.Contains(t, lines[5], "![preview")
}

func TestRenderReportDescriptions(t *testing.T) {
	report := testReport()
	report.Dishes[0].Description = "Fresh basil\nand pine nuts."

	lines := strings.Split(RenderTable(report), "\n")
	require.Len(t, lines, 7)
	require.Contains(t, lines[6], "Fresh basil and pine nuts.")
}

func TestRenderReportUnknownSource(t *testing.T) {
	report := testReport()
	report.Sources = nil
	require.Contains(t, RenderTable(report), "**DESY Canteen**")
}

func TestPublishRetries(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/lunchbot"))

	sender := &stubSender{failures: 9}
	publisher := Publisher{Sender: sender, Username: "Lunchbot"}

	err := publisher.Publish(context.Background(), testReport())
	require.NoError(t, err)
	require.Equal(t, 10, sender.calls)
	require.Len(t, sender.texts, 1)
	require.Equal(t, []string{"Lunchbot"}, sender.usernames)
}

func TestPublishGivesUp(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/lunchbot"))

	sender := &stubSender{failures: 100}
	publisher := Publisher{Sender: sender, Attempts: 3}

	err := publisher.PublishText(context.Background(), "hello")
	require.ErrorIs(t, err, errDelivery)
	require.Equal(t, 3, sender.calls)

	sender = &stubSender{failures: 100}
	err = Publisher{Sender: sender}.PublishText(context.Background(), "hello")
	require.ErrorIs(t, err, errDelivery)
	require.Equal(t, DefaultAttempts, sender.calls)
}

func TestPublishStopsOnCancel(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/lunchbot"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &stubSender{failures: 100}
	err := Publisher{Sender: sender}.PublishText(ctx, "hello")
	require.Error(t, err)
	require.Equal(t, 1, sender.calls)
}
