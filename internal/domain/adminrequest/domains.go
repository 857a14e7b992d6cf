package adminrequest

import "strings"

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// isInstitutional accepts *.edu, *.ac.<tld>, *.edu.<tld> and any domain (or
// subdomain) listed in extra.
func isInstitutional(domain string, extra []string) bool {
	labels := strings.Split(domain, ".")
	n := len(labels)
	if n < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	if labels[n-1] == "edu" {
		return true
	}
	if n >= 3 && (labels[n-2] == "ac" || labels[n-2] == "edu") {
		return true
	}
	return matchesDomain(domain, extra)
}

func matchesDomain(domain string, list []string) bool {
	if domain == "" {
		return false
	}
	for _, d := range list {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
