package ledger

// ShopABI is the JSON ABI of the ConsumerShop contract.
const ShopABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"index","type":"uint256"},
		{"indexed":true,"internalType":"uint256","name":"sku","type":"uint256"},
		{"indexed":false,"internalType":"string","name":"name","type":"string"},
		{"indexed":false,"internalType":"string","name":"image","type":"string"},
		{"indexed":false,"internalType":"string","name":"description","type":"string"},
		{"indexed":false,"internalType":"uint256","name":"quantityAvailable","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"price","type":"uint256"}
	],"name":"ProductCreated","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"index","type":"uint256"},
		{"indexed":true,"internalType":"uint256","name":"sku","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"quantitySold","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"totalQuantitySold","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"newQuantityAvailable","type":"uint256"}
	],"name":"ProductSold","type":"event"},
	{"stateMutability":"payable","type":"fallback"},
	{"inputs":[
		{"internalType":"uint256","name":"index","type":"uint256"}
	],"name":"buyProduct","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[
		{"internalType":"uint256","name":"_sku","type":"uint256"},
		{"internalType":"string","name":"_name","type":"string"},
		{"internalType":"string","name":"_image","type":"string"},
		{"internalType":"string","name":"_description","type":"string"},
		{"internalType":"uint256","name":"_price","type":"uint256"},
		{"internalType":"uint256","name":"_quantityAvailable","type":"uint256"}
	],"name":"createProduct","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"numberOfProducts","outputs":[
		{"internalType":"uint256","name":"","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[
		{"internalType":"uint256","name":"","type":"uint256"}
	],"name":"products","outputs":[
		{"internalType":"uint256","name":"sku","type":"uint256"},
		{"internalType":"string","name":"name","type":"string"},
		{"internalType":"string","name":"image","type":"string"},
		{"internalType":"string","name":"description","type":"string"},
		{"internalType":"uint256","name":"price","type":"uint256"},
		{"internalType":"uint256","name":"quantityAvailable","type":"uint256"},
		{"internalType":"uint256","name":"quantitySold","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"stateMutability":"payable","type":"receive"}
]`

const (
	eventProductCreated = "ProductCreated"
	eventProductSold    = "ProductSold"

	methodBuyProduct       = "buyProduct"
	methodCreateProduct    = "createProduct"
	methodNumberOfProducts = "numberOfProducts"
	methodProducts         = "products"
)
