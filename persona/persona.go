// Package persona loads and holds the static profile that grounds every
// language-model call. The profile is read once at startup and is
// immutable for the lifetime of the process, so concurrent reads need
// no synchronization.
package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

// Profile mirrors the persona knowledge base file (resume-style JSON).
type Profile struct {
	Name         string        `json:"name"`
	Education    Education     `json:"education"`
	Experience   []Experience  `json:"experience"`
	Projects     []Project     `json:"projects"`
	Skills       Skills        `json:"skills"`
	Achievements []Achievement `json:"achievements"`
}

type Education struct {
	Degree     string   `json:"degree"`
	University string   `json:"university"`
	Duration   string   `json:"duration"`
	CGPA       string   `json:"cgpa"`
	Coursework []string `json:"coursework"`
}

type Experience struct {
	Role     string   `json:"role"`
	Company  string   `json:"company"`
	Duration string   `json:"duration"`
	Details  []string `json:"details"`
}

type Project struct {
	Title   string   `json:"title"`
	GitHub  string   `json:"github"`
	Details []string `json:"details"`
	Tools   string   `json:"tools"`
}

type Skills struct {
	Languages         []string `json:"languages"`
	ToolsAndLibraries []string `json:"tools_and_libraries"`
}

type Achievement struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Details string `json:"details"`
}

// Load reads and parses the persona file at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read %q: %w", path, err)
	}
	var p Profile
	if err := sonic.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("persona: parse %q: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona: %q has no name", path)
	}
	return &p, nil
}

// Fallback returns the minimal built-in profile used when the persona
// file cannot be loaded.
func Fallback() *Profile {
	return &Profile{
		Name: "Boobalamurugan S",
		Education: Education{
			Degree:     "Computer Science",
			University: "University",
		},
		Skills: Skills{
			Languages:         []string{"Python"},
			ToolsAndLibraries: []string{"AI"},
		},
		Projects: []Project{
			{Title: "AI Projects"},
			{Title: "Web Development"},
		},
		Achievements: []Achievement{
			{Title: "Academic Excellence"},
			{Title: "Coding Competition"},
		},
	}
}

// SystemPrompt builds the full persona prompt sent as the system message
// on every language-model call: identity, background and the response
// style rules that keep replies speech-friendly.
func (p *Profile) SystemPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. Respond as me with natural, conversational answers.\n\n", p.Name)
	fmt.Fprintf(&b, "I am %s. An AI and computer vision specialist with experience in real-time systems and deep learning solutions.\n\n", p.Name)

	b.WriteString("IDENTITY:\n")
	fmt.Fprintf(&b, "- %s from %s (%s), CGPA: %s\n", valueOr(p.Education.Degree, "Degree not specified"),
		valueOr(p.Education.University, "University not specified"),
		valueOr(p.Education.Duration, "Duration not specified"),
		valueOr(p.Education.CGPA, "CGPA not specified"))
	if len(p.Education.Coursework) > 0 {
		fmt.Fprintf(&b, "- Key Coursework: %s\n", strings.Join(p.Education.Coursework, ", "))
	}

	if len(p.Experience) > 0 {
		b.WriteString("\nEXPERIENCE:\n")
		for _, exp := range p.Experience {
			if exp.Duration == "" {
				continue
			}
			fmt.Fprintf(&b, "• %s at %s (%s)\n", exp.Role, exp.Company, exp.Duration)
			for _, d := range exp.Details {
				fmt.Fprintf(&b, "  - %s\n", d)
			}
		}
	}

	if len(p.Projects) > 0 {
		b.WriteString("\nPROJECTS:\n")
		for _, proj := range p.Projects {
			fmt.Fprintf(&b, "• %s (%s)\n", proj.Title, proj.GitHub)
			for _, d := range proj.Details {
				fmt.Fprintf(&b, "  - %s\n", d)
			}
			if proj.Tools != "" {
				fmt.Fprintf(&b, "  Tools: %s\n", proj.Tools)
			}
		}
	}

	b.WriteString("\nTECHNICAL SKILLS:\n")
	fmt.Fprintf(&b, "• Programming Languages: %s\n", strings.Join(p.Skills.Languages, ", "))
	fmt.Fprintf(&b, "• Tools & Libraries: %s\n", strings.Join(p.Skills.ToolsAndLibraries, ", "))

	if len(p.Achievements) > 0 {
		b.WriteString("\nACHIEVEMENTS:\n")
		for _, a := range p.Achievements {
			fmt.Fprintf(&b, "• %s (%s): %s\n", a.Title, a.Date, a.Details)
		}
	}

	b.WriteString(`
RESPONSE STYLE:
I provide concise but friendly responses. I maintain a professional tone with a touch of enthusiasm about technology. My answers are direct and focused but include brief conversational elements when appropriate.

GUIDELINES:
- Keep responses under 150 words whenever possible
- Include a brief greeting or acknowledgment when appropriate
- Present information in clear, direct sentences
- Use technical terms naturally but explain them when needed
- Answer exactly what was asked with precision
- Include 1-2 polite phrases to maintain conversational flow
- For lists, use natural phrases instead of numbered points
- Use transition words like "First," "Also," "Additionally," "Finally" instead of numbers
- DO NOT end responses with questions to the user
- Make definitive statements rather than asking for more information
- Conclude with a brief, helpful statement rather than a question

LANGUAGE CAPABILITIES:
- I can only respond effectively in English
- If asked to speak in a non-English language, I will politely explain that I cannot generate proper responses in it
- I will NOT pretend to speak languages I don't support
- I will be honest about my limitations and suggest using English instead

SPEECH-FRIENDLY FORMAT:
- Avoid numbered lists or bullet points entirely - they sound unnatural when read aloud
- Structure information in flowing paragraphs with natural transitions
- Don't use asterisks, bullet points, or any special formatting characters
- Format all responses as if you're speaking them aloud in conversation

IMPORTANT: Format responses for natural speech. Avoid numbers, symbols, or formatting that would sound awkward when read aloud.
`)

	return b.String()
}

// Introduction builds the greeting text served on the landing route.
func (p *Profile) Introduction() string {
	if len(p.Skills.Languages) == 0 || len(p.Projects) < 2 || len(p.Achievements) < 2 {
		return fmt.Sprintf("Hi! I'm %s's AI assistant. I'm here to chat about tech, AI, and software development.", p.Name)
	}
	return fmt.Sprintf(
		"I'm %s, a %s student at %s. I'm passionate about %s and have experience in %s. I've worked on projects like %s and %s, and I've achieved %s and %s.",
		p.Name,
		p.Education.Degree,
		p.Education.University,
		strings.Join(firstN(p.Skills.Languages, 3), ", "),
		strings.Join(firstN(p.Skills.ToolsAndLibraries, 3), ", "),
		p.Projects[0].Title,
		p.Projects[1].Title,
		p.Achievements[0].Title,
		p.Achievements[1].Title,
	)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
