// Package assess generates skill assessments through the completion
// gateway and evaluates submitted answers. Generation degrades silently
// to a curated question bank so the assessment flow never breaks when
// the upstream is down or rate limited.
package assess

// Question is one assessment item. Multiple-choice questions carry
// Options and CorrectAnswer; short-answer questions carry
// ExpectedKeywords instead.
type Question struct {
	Type             string   `json:"type"`
	Question         string   `json:"question"`
	Options          []string `json:"options,omitempty"`
	CorrectAnswer    string   `json:"correctAnswer,omitempty"`
	ExpectedKeywords []string `json:"expectedKeywords,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
	Hint             string   `json:"hint,omitempty"`
	Topic            string   `json:"topic,omitempty"`
}

// fallbackQuestions is the curated bank served when generation fails.
var fallbackQuestions = map[string][]Question{
	"beginner": {
		{
			Type:          "multiple-choice",
			Question:      "What does the 'ls' command do in Linux?",
			Options:       []string{"Lists files and directories", "Links systems", "Loads software", "Lists servers"},
			CorrectAnswer: "Lists files and directories",
			Explanation:   "The 'ls' command lists the contents of a directory in Linux.",
			Hint:          "Think about viewing directory contents",
			Topic:         "linux",
		},
		{
			Type:          "multiple-choice",
			Question:      "What is the purpose of DNS?",
			Options:       []string{"Translates domain names to IP addresses", "Encrypts network traffic", "Stores user passwords", "Scans networks for vulnerabilities"},
			CorrectAnswer: "Translates domain names to IP addresses",
			Explanation:   "DNS (Domain Name System) translates human-readable domain names to IP addresses.",
			Hint:          "It helps you access websites by name",
			Topic:         "networking",
		},
		{
			Type:          "multiple-choice",
			Question:      "Which HTTP method is typically used to retrieve data from a server?",
			Options:       []string{"GET", "POST", "DELETE", "PUT"},
			CorrectAnswer: "GET",
			Explanation:   "GET is used to request data from a server without modifying it.",
			Hint:          "Think about reading or fetching data",
			Topic:         "web security",
		},
		{
			Type:          "multiple-choice",
			Question:      "What does SSH stand for?",
			Options:       []string{"Secure Shell", "Secure Service Host", "System Secure Host", "Secure System Hardware"},
			CorrectAnswer: "Secure Shell",
			Explanation:   "SSH (Secure Shell) is a cryptographic network protocol for secure remote login.",
			Hint:          "It provides secure remote access",
			Topic:         "networking",
		},
		{
			Type:          "multiple-choice",
			Question:      "What is the primary purpose of a firewall?",
			Options:       []string{"To filter and monitor network traffic", "To provide internet connection", "To increase internet speed", "To store sensitive data"},
			CorrectAnswer: "To filter and monitor network traffic",
			Explanation:   "A firewall controls incoming and outgoing traffic based on security rules.",
			Hint:          "Think about network security and traffic control",
			Topic:         "networking",
		},
		{
			Type:          "multiple-choice",
			Question:      "In Linux, what does the 'chmod' command do?",
			Options:       []string{"Changes file permissions", "Changes file ownership", "Changes file modification time", "Changes file content"},
			CorrectAnswer: "Changes file permissions",
			Explanation:   "chmod modifies read, write, and execute permissions on files and directories.",
			Hint:          "It controls who can read, write, or execute files",
			Topic:         "linux",
		},
		{
			Type:             "short-answer",
			Question:         "What are the three components of the CIA triad in information security?",
			ExpectedKeywords: []string{"confidentiality", "integrity", "availability"},
			Explanation:      "CIA stands for Confidentiality, Integrity, and Availability, the three core principles of information security.",
			Hint:             "Think about protecting data, keeping it accurate, and ensuring access",
			Topic:            "security concepts",
		},
		{
			Type:          "multiple-choice",
			Question:      "Which port is commonly used for HTTP web traffic?",
			Options:       []string{"80", "443", "22", "3389"},
			CorrectAnswer: "80",
			Explanation:   "Port 80 is the default port for unencrypted HTTP web traffic, while 443 is used for HTTPS.",
			Hint:          "Think about standard web browsing",
			Topic:         "networking",
		},
		{
			Type:             "short-answer",
			Question:         "What type of attack involves manipulating database queries through user input?",
			ExpectedKeywords: []string{"sql injection", "sqli", "sql"},
			Explanation:      "SQL Injection is an attack where malicious SQL code is inserted into application queries.",
			Hint:             "It targets database queries through untrusted input",
			Topic:            "web security",
		},
		{
			Type:          "multiple-choice",
			Question:      "What does XSS stand for in web security?",
			Options:       []string{"Cross-Site Scripting", "External Security System", "Cross-Server Scripting", "Extended Security Service"},
			CorrectAnswer: "Cross-Site Scripting",
			Explanation:   "XSS (Cross-Site Scripting) is a vulnerability that allows attackers to inject malicious scripts into web pages.",
			Hint:          "It involves injecting scripts across websites",
			Topic:         "web security",
		},
	},
	"oscp": {
		{
			Type:          "multiple-choice",
			Question:      "During a penetration test, you discover a web application vulnerable to LFI. Which file would be MOST useful for privilege escalation information on a Linux target?",
			Options:       []string{"/etc/passwd", "/var/www/html/index.php", "/etc/hostname", "/var/log/syslog"},
			CorrectAnswer: "/etc/passwd",
			Explanation:   "/etc/passwd contains user account information and can reveal valid usernames for further attacks.",
			Hint:          "Think about user enumeration",
			Topic:         "web exploitation",
		},
		{
			Type:          "multiple-choice",
			Question:      "You have a low-privilege shell on a Linux target. Which finding is MOST likely to lead directly to root?",
			Options:       []string{"A SUID binary with a known GTFOBins entry", "A world-readable /etc/hostname", "An open port 80 on localhost", "A large /var/log directory"},
			CorrectAnswer: "A SUID binary with a known GTFOBins entry",
			Explanation:   "Exploitable SUID binaries run with the owner's privileges and are a classic privilege escalation path.",
			Hint:          "Check file permissions that execute as another user",
			Topic:         "privesc",
		},
		{
			Type:             "short-answer",
			Question:         "You compromised a host with two network interfaces and need to reach an internal subnet from your attacking machine. Describe the technique you would use.",
			ExpectedKeywords: []string{"pivot", "tunnel", "port forward", "proxy"},
			Explanation:      "Pivoting through the dual-homed host, with SSH tunnels or a SOCKS proxy, routes attack traffic into the internal subnet.",
			Hint:             "The host is your bridge into the second network",
			Topic:            "pivoting",
		},
		{
			Type:          "multiple-choice",
			Question:      "During an AD assessment you obtain a service account's TGS ticket. What is the standard offline attack against it?",
			Options:       []string{"Kerberoasting", "Pass-the-hash", "Golden ticket forging", "LLMNR poisoning"},
			CorrectAnswer: "Kerberoasting",
			Explanation:   "Service tickets are encrypted with the service account's password hash and can be cracked offline.",
			Hint:          "The ticket itself is the crackable material",
			Topic:         "ad",
		},
		{
			Type:             "short-answer",
			Question:         "Halfway through the exam, an exploit that should work keeps failing. What is the disciplined next step?",
			ExpectedKeywords: []string{"enumerate", "move on", "notes", "methodology", "revisit"},
			Explanation:      "Time-boxing rabbit holes, returning to enumeration, and revisiting later with fresh notes is core exam methodology.",
			Hint:             "Think time management, not harder hammering",
			Topic:            "mindset",
		},
	},
}

// FallbackQuestions returns the curated bank for a mode, defaulting to
// beginner.
func FallbackQuestions(mode string) []Question {
	if qs, ok := fallbackQuestions[mode]; ok {
		return qs
	}
	return fallbackQuestions["beginner"]
}
