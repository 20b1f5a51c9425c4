package fleet

import (
	"fmt"
	"net/url"
)

// Console link kinds.
const (
	ConsoleFleet       = "fleet"
	ConsoleBuild       = "build"
	ConsoleAlias       = "alias"
	ConsoleCreateFleet = "create-fleet"
)

const consoleBase = "https://console.aws.amazon.com/gamelift/home"

// ConsoleURL returns the web console link for a fleet, build or alias, or
// the create-fleet page preselecting a build.
func ConsoleURL(region, kind, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("console url: empty id")
	}
	base := consoleBase + "?region=" + url.QueryEscape(region)
	switch kind {
	case ConsoleFleet:
		return base + "#/r/fleets/" + id, nil
	case ConsoleBuild:
		return base + "#/r/builds/" + id, nil
	case ConsoleAlias:
		return base + "#/r/aliases/" + id, nil
	case ConsoleCreateFleet:
		return base + "#/r/fleets/create?buildId=" + id, nil
	default:
		return "", fmt.Errorf("console url: unknown kind %q", kind)
	}
}
