package seeders

// demoNetworks - демо-сети с филиалами. Вторая сеть закрыта целиком.
var demoNetworks = []struct {
	Name     string
	Active   bool
	Opened   string
	Branches []string
}{
	{Name: "Rede Sul", Active: true, Opened: "2023-02-01", Branches: []string{"Centro", "Moinhos", "Zona Norte"}},
	{Name: "Rede Litoral", Active: false, Opened: "2023-06-15", Branches: []string{"Praia Grande", "Porto"}},
	{Name: "São João Farmácias", Active: true, Opened: "2024-01-10", Branches: []string{"Matriz", "Shopping Iguatemi", "Rodoviária", "Aeroporto"}},
}

var demoFirstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Eduarda", "Felipe", "Gabriela", "Henrique", "Isabela", "João"}

var demoLastNames = []string{"Silva", "Souza", "Oliveira", "Pereira", "Costa", "Almeida"}
