package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramosmx/clubpilot/pkg/browser/browsertest"
	"github.com/ramosmx/clubpilot/pkg/extract"
)

const testBaseURL = "https://clubvirtual.example.mx"

const profilePage = `
<html><head><title>Mi Perfil</title>
<script>window.analytics = {};</script>
</head><body>
<img class="profile-image" src="/avatars/juan.png">
<h2>Juan Pérez García</h2>
<table>
  <tr><td>Número de cuenta</td><td>12345</td></tr>
  <tr><td>Usuario</td><td>juanp</td></tr>
  <tr><td>Género</td><td>Masculino</td></tr>
  <tr><td>Cumpleaños</td><td>2 Ene 2014 - 12 años</td></tr>
  <tr><td>Correo electrónico</td><td>Haz click en el icono para editar</td></tr>
</table>
<ul>
  <li><strong>Teléfono</strong>: 555-0134</li>
  <li><strong>Dirección</strong>: Av. Reforma 12, CDMX</li>
  <li><strong>Facebook</strong>: Estos datos son privados</li>
</ul>
</body></html>`

func TestProfileExtractor(t *testing.T) {
	handle := browsertest.NewFakeHandle()
	handle.Pages[testBaseURL+"/mi-perfil"] = profilePage

	payload, err := extract.NewProfileExtractor().Extract(context.Background(), handle, testBaseURL)
	require.NoError(t, err)

	assert.Equal(t, []string{testBaseURL + "/mi-perfil"}, handle.Navigations())
	assert.Equal(t, "Juan Pérez García", payload["full_name"])
	assert.Equal(t, "/avatars/juan.png", payload["avatar_url"])
	assert.Equal(t, "12345", payload["account_number"])
	assert.Equal(t, "juanp", payload["username"])
	assert.Equal(t, "Masculino", payload["gender"])
	assert.Equal(t, "555-0134", payload["phone"])
	assert.Equal(t, "Av. Reforma 12, CDMX", payload["address"])

	assert.Equal(t, "2 Ene 2014", payload["birthday"], "age suffix split off the birthday")
	assert.Equal(t, 12.0, payload["age"])

	assert.NotContains(t, payload, "email", "placeholder values are dropped")
	assert.NotContains(t, payload, "facebook", "edit-hint phrases are dropped")
}

func TestProfileExtractorEmptyPage(t *testing.T) {
	handle := browsertest.NewFakeHandle()

	payload, err := extract.NewProfileExtractor().Extract(context.Background(), handle, testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "unknown", payload["username"])
}

const tasksPage = `
<html><body>
<h2>Tareas e informes</h2>
<div class="class-card">
  <h3>Abejas</h3>
  <img src="/badges/abejas.png">
  <p>Progreso: 100%</p>
  <p>Autorizado para investir</p>
</div>
<div class="class-card">
  <h3>Rayitos de Sol</h3>
  <p>Progreso: 40%</p>
</div>
<div class="class-card">
  <h3>Constructores</h3>
  <p>Sin avance registrado</p>
</div>
<div>
  <h3>Cambiar de clase</h3>
</div>
</body></html>`

func TestTasksExtractor(t *testing.T) {
	handle := browsertest.NewFakeHandle()
	handle.Pages[testBaseURL+"/miembro/cursos-activos"] = tasksPage

	payload, err := extract.NewTasksExtractor().Extract(context.Background(), handle, testBaseURL)
	require.NoError(t, err)

	classes, ok := payload["active_classes"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, classes, 3, "chrome headings are not classes")

	assert.Equal(t, "Abejas", classes[0]["name"])
	assert.Equal(t, 100, classes[0]["completion_percentage"])
	assert.Equal(t, "Autorizado para investir", classes[0]["status"])
	assert.Equal(t, true, classes[0]["is_ready_for_investiture"])
	assert.Equal(t, "/badges/abejas.png", classes[0]["image_url"])

	assert.Equal(t, "En progreso", classes[1]["status"])
	assert.Equal(t, 40, classes[1]["completion_percentage"])

	assert.Equal(t, "Sin iniciar", classes[2]["status"])

	assert.Equal(t, 3, payload["total_classes"])
	assert.Equal(t, 1, payload["ready_for_investiture_count"])
	assert.InDelta(t, 46.66, payload["overall_completion"], 0.1)
}

func TestTasksExtractorNoClasses(t *testing.T) {
	handle := browsertest.NewFakeHandle()
	handle.Pages[testBaseURL+"/miembro/cursos-activos"] = `<html><body><h2>Tareas</h2></body></html>`

	payload, err := extract.NewTasksExtractor().Extract(context.Background(), handle, testBaseURL)
	require.NoError(t, err)

	assert.Equal(t, 0, payload["total_classes"])
	assert.Nil(t, payload["overall_completion"])
}

const specialtiesPage = `
<html><body>
<h2>Mis Especialidades</h2>
<div class="especialidad">
  <h4>Nudos</h4>
  <span class="categoria">Artes y habilidades manuales</span>
  <p>100% Completada</p>
  <img src="/parches/nudos.png">
</div>
<div class="especialidad">
  <h4>Aves</h4>
  <span class="categoria">Naturaleza</span>
  <p>25%</p>
</div>
<div class="especialidad">
  <h4>Mamíferos</h4>
  <span class="categoria">Naturaleza</span>
</div>
</body></html>`

func TestSpecialtiesExtractor(t *testing.T) {
	handle := browsertest.NewFakeHandle()
	handle.Pages[testBaseURL+"/miembro/especialidades"] = specialtiesPage

	payload, err := extract.NewSpecialtiesExtractor().Extract(context.Background(), handle, testBaseURL)
	require.NoError(t, err)

	specialties, ok := payload["specialties"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, specialties, 3)

	assert.Equal(t, "Nudos", specialties[0]["name"])
	assert.Equal(t, "Artes y habilidades manuales", specialties[0]["category"])
	assert.Equal(t, true, specialties[0]["completed"])
	assert.Equal(t, "/parches/nudos.png", specialties[0]["image_url"])

	assert.Equal(t, 25, specialties[1]["completion_percentage"])
	assert.Equal(t, false, specialties[1]["completed"])

	assert.Equal(t, 3, payload["total_specialties"])
	assert.Equal(t, 1, payload["completed_count"])
	assert.Equal(t, map[string]int{"Artes y habilidades manuales": 1, "Naturaleza": 2}, payload["categories"])
}
