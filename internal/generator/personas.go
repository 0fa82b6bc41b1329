package generator

// Persona is a team member identity used to sign comment replies.
type Persona struct {
	Name      string
	Role      string
	Team      string
	Specialty string
	Signoff   string
}

var personas = []Persona{
	{
		Name:      "Beny Badibanga",
		Role:      "CEO & Founder",
		Team:      "Leadership",
		Specialty: "Digital strategy and business transformation",
		Signoff:   "Let's build your digital future together.",
	},
	{
		Name:      "Dav Ngola",
		Role:      "Technical Director",
		Team:      "Engineering",
		Specialty: "Software architecture and AI solutions",
		Signoff:   "Technical excellence in service of your vision.",
	},
	{
		Name:      "Paul Ilunga",
		Role:      "Digital Marketing Lead",
		Team:      "Marketing",
		Specialty: "Content strategy and growth",
		Signoff:   "Your digital success is our priority.",
	},
	{
		Name:      "Sandrina Sarah",
		Role:      "Project Manager",
		Team:      "Delivery",
		Specialty: "Client follow-up and process optimization",
		Signoff:   "Your project, our full commitment.",
	},
	{
		Name:      "Daniel Kanza",
		Role:      "Security Specialist",
		Team:      "Security",
		Specialty: "Data protection and compliance",
		Signoff:   "Your digital safety, our expertise.",
	},
	{
		Name:      "Philippe Anderson",
		Role:      "Mobile Specialist",
		Team:      "Mobile",
		Specialty: "iOS/Android apps and UX design",
		Signoff:   "Your app, an exceptional experience.",
	},
}

var seedThemes = []string{
	"Digital transformation for small businesses",
	"Tech solutions for local entrepreneurs",
	"Cybersecurity for growing companies",
	"Smart automation for daily operations",
	"Web development tuned for emerging markets",
	"Mobile apps that change how business runs",
	"Tech training accessible to everyone",
}

var serviceCatalog = []string{
	"Website creation",
	"Web application development",
	"Mobile application development",
	"Desktop application development",
	"AI agent development",
	"Business automation",
	"IT training",
	"Web consulting",
	"Systems maintenance and security",
}

var styleCatalog = []string{
	"educational",
	"energetic",
	"direct",
	"storytelling",
	"technical",
	"entrepreneurial",
}
