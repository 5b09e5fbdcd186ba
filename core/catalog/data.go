package catalog

// Engine IDs. The numbering follows the curricular engine inventory;
// gaps are engines not yet ported to this platform.
const (
	EngineCounting   = "ENG01" // Counter / Number Line
	EngineOperations = "ENG02" // Drag-Drop Numbers
)

// DefaultTheme is the neutral skin used when no theme was requested or detected.
const DefaultTheme = "clasico"

var defaultEngines = []EngineDescriptor{
	{
		ID:                   EngineCounting,
		Name:                 "Counter / Number Line",
		Interaction:          InteractionCounting,
		ContentSchema:        "counting_v1",
		CompatibleSkinThemes: []string{"granja", "espacio", "bosque", DefaultTheme},
	},
	{
		ID:                   EngineOperations,
		Name:                 "Drag-Drop Numbers",
		Interaction:          InteractionOperation,
		ContentSchema:        "operation_v1",
		CompatibleSkinThemes: []string{"granja", "espacio", DefaultTheme},
	},
}

var defaultSkins = []SkinDescriptor{
	{
		ID:                "skin-1b-farm",
		Theme:             "granja",
		Name:              "🐄 Granja 1° Básico",
		ApplicableEngines: []string{EngineCounting, EngineOperations},
		Vocabulary: Vocabulary{
			Nouns:  []string{"pollitos", "vacas", "cerditos", "ovejas", "conejitos"},
			Icons:  []string{"🐔", "🐄", "🐷", "🐑", "🐰"},
			Sounds: []string{"pío pío", "muuu", "oink oink", "beee", "hop hop"},
		},
		Palette: Palette{
			Primary:   "#F59E0B",
			Secondary: "#92400E",
			Accent:    "#FDE047",
			Success:   "#10B981",
			Error:     "#EF4444",
		},
		Templates: []Template{
			{Interaction: InteractionCounting, Stem: "{icon} ¿Cuántos {noun} hay en el corral?"},
			{Interaction: InteractionCounting, Stem: "{icon} Cuenta los {noun} que están pastando en el campo"},
			{Interaction: InteractionOperation, Stem: "{icon} Había {a} {noun} y llegaron {b} más. ¿Cuántos {noun} hay ahora?"},
		},
		Keywords:    []string{"granja", "animales", "vaca", "pollito", "campo", "corral"},
		CatchPhrase: "¡Excelente!",
	},
	{
		ID:                "skin-math-001",
		Theme:             "espacio",
		Name:              "🚀 Números Espaciales",
		ApplicableEngines: []string{EngineCounting, EngineOperations},
		Vocabulary: Vocabulary{
			Nouns:  []string{"cohetes", "estrellas", "naves", "alienígenas", "planetas"},
			Icons:  []string{"🚀", "⭐", "🛸", "👽", "🪐"},
			Sounds: []string{"fiuuu", "tilín", "zzzum", "bip bip", "woosh"},
		},
		Palette: Palette{
			Primary:   "#1E3A8A",
			Secondary: "#312E81",
			Accent:    "#A78BFA",
			Success:   "#10B981",
			Error:     "#EF4444",
		},
		Templates: []Template{
			{Interaction: InteractionCounting, Stem: "{icon} ¿Cuántos {noun} ves en la galaxia?"},
			{Interaction: InteractionCounting, Stem: "{icon} Cuenta los {noun} que navegan por el espacio"},
			{Interaction: InteractionOperation, Stem: "{icon} Despegaron {a} {noun} y luego {b} más. ¿Cuántos {noun} despegaron en total?"},
		},
		Keywords:    []string{"espacio", "espacial", "planeta", "cohete", "estrella", "galaxia"},
		CatchPhrase: "¡Fantástico!",
	},
	{
		ID:                "skin-1b-forest",
		Theme:             "bosque",
		Name:              "🦊 Amigos del Bosque",
		ApplicableEngines: []string{EngineCounting},
		Vocabulary: Vocabulary{
			Nouns:  []string{"zorros", "búhos", "ardillas", "ciervos"},
			Icons:  []string{"🦊", "🦉", "🐿️", "🦌"},
			Sounds: []string{"yip yip", "uuuh", "ñam ñam", "toc toc"},
		},
		Palette: Palette{
			Primary:   "#166534",
			Secondary: "#3F6212",
			Accent:    "#FACC15",
			Success:   "#10B981",
			Error:     "#EF4444",
		},
		Templates: []Template{
			{Interaction: InteractionCounting, Stem: "{icon} ¿Cuántos {noun} viven en el bosque?"},
		},
		Keywords:    []string{"bosque", "árboles", "naturaleza", "zorro", "búho"},
		CatchPhrase: "¡Muy bien!",
	},
	{
		ID:                "skin-neutral",
		Theme:             DefaultTheme,
		Name:              "Figuras Clásicas",
		ApplicableEngines: []string{EngineCounting, EngineOperations},
		Vocabulary: Vocabulary{
			Nouns:  []string{"objetos", "elementos", "figuras", "formas"},
			Icons:  []string{"🔵", "🟢", "🟡", "🔴"},
			Sounds: []string{"tic", "tac", "clic", "clac"},
		},
		Palette: Palette{
			Primary:   "#2563EB",
			Secondary: "#475569",
			Accent:    "#F59E0B",
			Success:   "#10B981",
			Error:     "#EF4444",
		},
		Templates: []Template{
			{Interaction: InteractionCounting, Stem: "{icon} ¿Cuántos {noun} ves en total?"},
			{Interaction: InteractionOperation, Stem: "{icon} Tienes {a} {noun} y recibes {b} más. ¿Cuántos {noun} tienes en total?"},
		},
		Keywords:    nil, // neutral: never keyword-matched, only explicit or fallback
		CatchPhrase: "¡Correcto!",
	},
}

// Default returns the authored catalog. The compatibility table is static;
// it is never inferred at runtime.
func Default() *Registry {
	return MustRegistry(defaultEngines, defaultSkins)
}
