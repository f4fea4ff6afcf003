package lib

const version = "0.1.0"
const name = "sasstask"
