package contract

// TicketABI is the interface of the single-round lottery: entries are plain
// transfers picked up by receive(), and the deployer stays manager forever.
const TicketABI = `[
	{"inputs": [], "stateMutability": "nonpayable", "type": "constructor"},
	{"inputs": [], "name": "getBalance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "manager", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "name": "participants", "outputs": [{"internalType": "address payable", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "random", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "selectWinner", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"stateMutability": "payable", "type": "receive"}
]`

// RoundABI extends TicketABI with explicit rounds. startLottery() reverts
// with "already active" while a round is open and makes the caller manager.
const RoundABI = `[
	{"inputs": [], "stateMutability": "nonpayable", "type": "constructor"},
	{"inputs": [], "name": "getBalance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "manager", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "lotteryActive", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "name": "participants", "outputs": [{"internalType": "address payable", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "random", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "selectWinner", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [], "name": "startLottery", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"stateMutability": "payable", "type": "receive"}
]`
