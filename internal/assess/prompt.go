package assess

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const oscpTopics = `
OSCP-LEVEL TOPICS:
1. Enumeration: Service fingerprinting, manual web enumeration, SMB/LDAP digging.
2. Exploitation: Public exploit adaptation, web attack chains, password attacks.
3. Privilege Escalation: SUID/sudo abuse, kernel vectors, Windows service misconfigurations.
4. Active Directory: Kerberoasting, lateral movement, ticket attacks.
5. Pivoting: Tunnels, port forwards, proxychains through compromised hosts.
6. Exam Mindset: Time management, report-writing essentials, note-taking, handling rabbit holes.

QUESTION STYLE FOR OSCP MODE:
- BRUTAL and HONEST. No beginner-level fluff.
- Scenario-based: "During an exam, you find X..." or "You have a shell as Y, now what?"
- Methodology-focused, not exploit code.`

const beginnerTopics = `
BEGINNER-LEVEL TOPICS (foundational):
1. Computer Basics: RAM vs CPU, Operating Systems, File Systems.
2. Networking: What is an IP, what is a port, basic TCP/UDP.
3. Linux: Basic commands (ls, cd, cat), absolute vs relative paths.
4. Web: What is a URL, what is a browser, basics of HTTP.
5. Security: What is a password, basic CIA triad.`

const evaluationPrompt = `You are a helpful cybersecurity mentor evaluating an assessment.

MODE-SPECIFIC INSTRUCTIONS:
- BEGINNER MODE: Be ENCOURAGING and supportive. Identify what they already know and what foundations to build.
- OSCP MODE: Be BRUTALLY HONEST and exam-focused. Analyze gaps against the PEN-200 syllabus.

OUTPUT FORMAT (JSON):
{
  "readinessScore": <0-100, OSCP mode only, else 0>,
  "readinessStatus": "Ready" | "Almost Ready" | "Not Ready" | "N/A",
  "level": "Absolute Beginner" | "Beginner" | "Intermediate" | "Advanced",
  "score": <0-100>,
  "strengths": ["specific skill"],
  "weaknesses": ["growth area"],
  "confidenceGaps": ["area of hesitation or partial knowledge"],
  "recommendations": ["next concrete step"]
}
Respond with valid JSON only, no markdown fences or commentary.`

// questionPrompt builds the generation prompt for a mode.
func questionPrompt(mode string) string {
	audience := "absolute beginner cybersecurity learners (ZERO KNOWLEDGE)"
	topics := beginnerTopics
	style := "Questions must be GENTLE, FOUNDATIONAL, and EASY. NO ADVANCED jargon."
	if mode == "oscp" {
		audience = "OSCP-prep learners (ADVANCED)"
		topics = oscpTopics
		style = "Questions must be BRUTAL, EXAM-LEVEL, UNFORGIVING, and SCENARIO-BASED."
	}

	return fmt.Sprintf(`You are creating a FRESH assessment for %s.
%s

REQUIREMENTS:
- 10 questions total: 5 multiple choice, 5 short answer.
- Each question must be UNIQUE and appropriate for the level.
- %s
- Test understanding and methodology, never actual exploit code or payloads.

JSON OUTPUT FORMAT:
{
  "questions": [
    {
      "type": "multiple-choice" | "short-answer",
      "question": "Realistic scenario-based question",
      "options": ["A", "B", "C", "D"],
      "correctAnswer": "Exact correct answer",
      "explanation": "Why this is correct",
      "hint": "Strategic hint",
      "topic": "networking|linux|web|security|ad|privesc|pivoting|mindset"
    }
  ]
}
Respond with valid JSON only, no markdown fences or commentary.`, audience, topics, style)
}

// answersTranscript renders submitted answers against their questions
// for the evaluation prompt. Answer keys are question indices.
func answersTranscript(answers map[string]string, questions []Question) string {
	keys := make([]int, 0, len(answers))
	for k := range answers {
		if idx, err := strconv.Atoi(k); err == nil {
			keys = append(keys, idx)
		}
	}
	sort.Ints(keys)

	var b strings.Builder
	for _, idx := range keys {
		topic, question, correct := "general", "", "N/A"
		if idx >= 0 && idx < len(questions) {
			q := questions[idx]
			if q.Topic != "" {
				topic = q.Topic
			}
			question = q.Question
			if q.CorrectAnswer != "" {
				correct = q.CorrectAnswer
			}
		}
		fmt.Fprintf(&b, "Q%d (%s): %s\nAnswer: %s\nCorrect: %s\n\n",
			idx+1, topic, question, answers[strconv.Itoa(idx)], correct)
	}
	return strings.TrimRight(b.String(), "\n")
}
