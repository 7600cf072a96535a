package trigger

import "strings"

// Likelihood ranks how probable a second-order sink is for a parameter.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// Suggestion describes where an injected value is likely to resurface and
// what a human should do to trigger it.
type Suggestion struct {
	Sink       string
	Likelihood Likelihood
	Steps      []string
}

// suggestionRules map parameter-name substrings to likely sinks, checked in
// order so the most specific match wins.
var suggestionRules = []struct {
	match       string
	suggestions []Suggestion
}{
	{"comment", []Suggestion{
		{"moderation queue", LikelihoodHigh, []string{
			"Open the comment moderation page as an administrator",
			"View the page where approved comments render",
		}},
		{"notification email to the author", LikelihoodMedium, []string{
			"Reply to the comment and watch for mail-client callbacks",
		}},
	}},
	{"message", []Suggestion{
		{"support agent inbox", LikelihoodHigh, []string{
			"Wait for an agent to open the ticket, or open it in the admin panel",
		}},
		{"email notification", LikelihoodMedium, []string{
			"Trigger the notification mail and check for image-load callbacks",
		}},
	}},
	{"feedback", []Suggestion{
		{"feedback review dashboard", LikelihoodHigh, []string{
			"Open the feedback review page as staff",
		}},
	}},
	{"username", []Suggestion{
		{"admin user listing", LikelihoodHigh, []string{
			"Browse the user management page as an administrator",
		}},
		{"audit log viewer", LikelihoodMedium, []string{
			"Perform a failed login and open the audit log",
		}},
	}},
	{"name", []Suggestion{
		{"admin user listing", LikelihoodHigh, []string{
			"Browse the user management page as an administrator",
		}},
		{"welcome or confirmation email", LikelihoodMedium, []string{
			"Trigger a password reset or profile change notification",
		}},
		{"CSV or PDF export", LikelihoodMedium, []string{
			"Export the user list and open the file",
		}},
	}},
	{"email", []Suggestion{
		{"admin user listing", LikelihoodMedium, []string{
			"Browse the user management page as an administrator",
		}},
		{"mail template rendering", LikelihoodMedium, []string{
			"Trigger any notification addressed to this account",
		}},
	}},
	{"address", []Suggestion{
		{"order fulfillment view", LikelihoodMedium, []string{
			"Place an order and open it in the back office",
		}},
		{"shipping label or invoice PDF", LikelihoodMedium, []string{
			"Generate the invoice for an order using this address",
		}},
	}},
	{"phone", []Suggestion{
		{"CRM contact view", LikelihoodLow, []string{
			"Open the contact record in the back office",
		}},
	}},
	{"search", []Suggestion{
		{"search analytics dashboard", LikelihoodMedium, []string{
			"Open the popular-searches or zero-results report",
		}},
	}},
	{"q", []Suggestion{
		{"search analytics dashboard", LikelihoodMedium, []string{
			"Open the popular-searches or zero-results report",
		}},
	}},
	{"url", []Suggestion{
		{"link preview fetcher", LikelihoodHigh, []string{
			"Submit the form and wait; many preview fetchers run asynchronously",
		}},
		{"admin link listing", LikelihoodMedium, []string{
			"Open the submitted-links page as staff",
		}},
	}},
	{"website", []Suggestion{
		{"link preview fetcher", LikelihoodHigh, []string{
			"Submit the form and wait; many preview fetchers run asynchronously",
		}},
	}},
	{"user-agent", []Suggestion{
		{"analytics dashboard", LikelihoodHigh, []string{
			"Open the visitor analytics page after a few minutes",
		}},
		{"server log viewer", LikelihoodMedium, []string{
			"Open the access log viewer in the admin panel",
		}},
	}},
	{"referer", []Suggestion{
		{"analytics referrer report", LikelihoodHigh, []string{
			"Open the traffic-sources report after a few minutes",
		}},
	}},
	{"x-forwarded-for", []Suggestion{
		{"security or audit log viewer", LikelihoodMedium, []string{
			"Open the audit log or blocked-IPs page as staff",
		}},
	}},
}

var genericSuggestion = Suggestion{
	Sink:       "back-office pages rendering stored input",
	Likelihood: LikelihoodLow,
	Steps: []string{
		"Browse admin, export, and reporting pages that display this data",
		"Keep the callback listener running; second-order sinks can fire hours later",
	},
}

// SuggestFor returns trigger suggestions for a parameter name, most likely
// first. Matching is a case-insensitive substring check over the bare name;
// a location-qualified name like "header:user-agent" is accepted. Unknown
// parameters get a generic suggestion.
func SuggestFor(parameter string) []Suggestion {
	name := parameter
	if _, bare, found := strings.Cut(parameter, ":"); found {
		name = bare
	}
	name = strings.ToLower(name)

	for _, rule := range suggestionRules {
		if strings.Contains(name, rule.match) {
			out := make([]Suggestion, len(rule.suggestions))
			copy(out, rule.suggestions)
			return out
		}
	}
	return []Suggestion{genericSuggestion}
}
