package catalog

var seedProducts = []Product{
	{
		ID: "lambie-plush", Name: "Lambie Plushie", EnglishName: "Lambie Plushie", KoreanName: "램비 인형",
		Description: "눈물이 많은 우리 램비 친구! 부드러운 양털 소재로 포근하게 안아줄 수 있어요.",
		Price:       35000, Image: "/products/lambie-plush.jpg", Category: CategoryPlushie, CharacterID: "lamb",
		Stock: 28, Featured: true,
	},
	{
		ID: "ari-plush", Name: "Ari Plushie", EnglishName: "Ari Plushie", KoreanName: "아리 인형",
		Description: "용감한 척하지만 사실은 귀여운 아리! 폭신한 갈기가 매력 포인트예요.",
		Price:       35000, Image: "/products/ari-plush.jpg", Category: CategoryPlushie, CharacterID: "lion",
		Stock: 42, Featured: true,
	},
	{
		ID: "davi-plush", Name: "Davi Plushie", EnglishName: "Davi Plushie", KoreanName: "다비 인형",
		Description: "용기의 조약돌을 품은 귀여운 다람쥐 다비! 미니 사이즈로 가방에 달아보세요.",
		Price:       32000, Image: "/products/davi-plush.jpg", Category: CategoryPlushie, CharacterID: "squirrel",
		Stock: 35,
	},
	{
		ID: "coco-plush", Name: "Coco Plushie", EnglishName: "Coco Plushie", KoreanName: "코코 인형",
		Description: "늘 졸린 코코 곰돌이! 초콜릿 향기가 나는 담요와 함께해요.",
		Price:       38000, Image: "/products/coco-plush.jpg", Category: CategoryPlushie, CharacterID: "bear",
		Stock: 19, Featured: true,
	},
	{
		ID: "character-sticker-set", Name: "Character Sticker Set", EnglishName: "Character Sticker Set", KoreanName: "캐릭터 스티커 세트",
		Description: "리틀 나사렛 친구들이 한 세트에! 다이어리, 노트북을 꾸며보세요.",
		Price:       12000, Image: "/products/sticker-set.jpg", Category: CategorySticker,
		Stock: 47,
	},
	{
		ID: "story-book", Name: "Little Nazareth Story Book", EnglishName: "Little Nazareth Story Book", KoreanName: "리틀 나사렛 스토리북",
		Description: "친구들의 따뜻한 이야기가 담긴 그림책. 잠들기 전 읽기 좋아요.",
		Price:       18000, Image: "/products/story-book.jpg", Category: CategoryBook,
		Stock: 23, Featured: true,
	},
	{
		ID: "coco-blanket", Name: "Coco Blanket", EnglishName: "Coco Blanket", KoreanName: "코코 담요",
		Description: "코코처럼 포근한 담요! 초콜릿 브라운 색상으로 따뜻해요.",
		Price:       45000, Image: "/products/coco-blanket.jpg", Category: CategoryHomegoods, CharacterID: "bear",
		Stock: 12,
	},
	{
		ID: "character-cushion", Name: "Character Cushion", EnglishName: "Character Cushion", KoreanName: "캐릭터 쿠션",
		Description: "좋아하는 친구를 골라 쿠션으로! 소파나 침대를 꾸며보세요.",
		Price:       28000, Image: "/products/character-cushion.jpg", Category: CategoryHomegoods,
		Stock: 31,
	},
	{
		ID: "character-keychain", Name: "Character Keychain", EnglishName: "Character Keychain", KoreanName: "캐릭터 키링",
		Description: "귀여운 아크릴 키링! 가방이나 열쇠에 달아보세요.",
		Price:       8000, Image: "/products/keychain.jpg", Category: CategoryAccessory,
		Stock: 45,
	},
	{
		ID: "eco-bag", Name: "Little Nazareth Eco Bag", EnglishName: "Little Nazareth Eco Bag", KoreanName: "리틀 나사렛 에코백",
		Description: "친구들이 그려진 튼튼한 에코백. 장바구니로 활용하기 좋아요.",
		Price:       15000, Image: "/products/eco-bag.jpg", Category: CategoryAccessory,
		Stock: 38,
	},
}
