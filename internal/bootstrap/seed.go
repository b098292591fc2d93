package bootstrap

type seedProduct struct {
	Name        string
	Description string
	Price       float64
	Images      []string
}

type seedCategory struct {
	Name     string
	Icon     string
	Order    int
	Products []seedProduct
}

type seedGroup struct {
	Name       string
	Icon       string
	Categories []seedCategory
}

// seedCatalog is the starter menu written on first setup: three groups, five
// categories, eleven products.
var seedCatalog = []seedGroup{
	{
		Name: "Lanches", Icon: "fas fa-burger",
		Categories: []seedCategory{
			{
				Name: "Artesanais", Icon: "burger", Order: 1,
				Products: []seedProduct{
					{
						Name:        "X-Snack Bacon",
						Description: "Pão brioche, blend 180g, muito bacon crocante, cheddar inglês e maionese da casa.",
						Price:       32.90,
						Images:      []string{"https://images.unsplash.com/photo-1594212699903-ec8a3eca50f5?w=600"},
					},
					{
						Name:        "Smash Duplo",
						Description: "Dois blends de 80g prensados na chapa, queijo prato, cebola caramelizada e picles.",
						Price:       28.50,
						Images:      []string{"https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=600"},
					},
					{
						Name:        "Chicken Crispy",
						Description: "Filé de frango empanado, alface americana, tomate e molho honey mustard.",
						Price:       25.00,
						Images:      []string{"https://images.unsplash.com/photo-1615557960916-5f4791effe9d?w=600"},
					},
				},
			},
			{
				Name: "Hot Dogs", Icon: "hotdog", Order: 2,
				Products: []seedProduct{
					{
						Name:        "Dogão Clássico",
						Description: "Pão, salsicha, purê, batata palha, milho e vinagrete.",
						Price:       18.00,
						Images:      []string{"https://images.unsplash.com/photo-1612392062631-94dd858cba88?w=600"},
					},
					{
						Name:        "Dogão Cheddar",
						Description: "Pão, duas salsichas, muito cheddar cremoso e bacon em cubos.",
						Price:       22.00,
						Images:      []string{"https://images.unsplash.com/photo-1599599810769-bcde5a160d32?w=600"},
					},
				},
			},
		},
	},
	{
		Name: "Bebidas", Icon: "fas fa-glass-water",
		Categories: []seedCategory{
			{
				Name: "Refrigerantes", Icon: "soda", Order: 1,
				Products: []seedProduct{
					{
						Name:        "Coca-Cola Lata",
						Description: "Lata 350ml gelada.",
						Price:       6.00,
						Images:      []string{"https://images.unsplash.com/photo-1622483767028-3f66f32aef97?w=600"},
					},
					{
						Name:        "Guaraná Antarctica",
						Description: "Lata 350ml.",
						Price:       6.00,
						Images:      []string{"https://images.unsplash.com/photo-1624517452488-04869289c4ca?w=600"},
					},
				},
			},
			{
				Name: "Sucos Naturais", Icon: "leaf", Order: 2,
				Products: []seedProduct{
					{
						Name:        "Suco de Laranja",
						Description: "500ml, espremido na hora.",
						Price:       10.00,
						Images:      []string{"https://images.unsplash.com/photo-1613478223719-2ab802602423?w=600"},
					},
					{
						Name:        "Limonada Suíça",
						Description: "500ml, com leite condensado.",
						Price:       12.00,
						Images:      []string{"https://images.unsplash.com/photo-1513558161293-cdaf765ed2fd?w=600"},
					},
				},
			},
		},
	},
	{
		Name: "Sobremesas", Icon: "fas fa-ice-cream",
		Categories: []seedCategory{
			{
				Name: "Gelados", Icon: "ice-cream", Order: 1,
				Products: []seedProduct{
					{
						Name:        "Milkshake Ovomaltine",
						Description: "500ml de pura cremosidade e flocos crocantes.",
						Price:       18.90,
						Images:      []string{"https://images.unsplash.com/photo-1572490122747-3968b75cc699?w=600"},
					},
					{
						Name:        "Sundae Morango",
						Description: "Sorvete de baunilha com calda de morango e castanhas.",
						Price:       14.00,
						Images:      []string{"https://images.unsplash.com/photo-1563805042-7684c019e1cb?w=600"},
					},
				},
			},
		},
	},
}
